package junqi

import (
	"errors"
	"fmt"
	"time"
)

// GameStatus 对局状态
type GameStatus string

const (
	StatusWaiting  GameStatus = "WAITING"
	StatusPlaying  GameStatus = "PLAYING"
	StatusFinished GameStatus = "FINISHED"
)

var (
	ErrGameNotPlaying = errors.New("游戏未在进行中")
	ErrNotYourTurn    = errors.New("还没轮到你")
	ErrPieceNotFound  = errors.New("棋子不存在")
	ErrNotYourPiece   = errors.New("不是你的棋子")
	ErrPieceDead      = errors.New("棋子已阵亡")
)

// Player 对局中的玩家
type Player struct {
	UserID      string   `json:"userId"`
	DisplayName string   `json:"username"`
	Seat        int      `json:"position"`
	Team        int      `json:"team"`
	Ready       bool     `json:"isReady"`
	Alive       bool     `json:"isAlive"`
	Pieces      []*Piece `json:"pieces"`
}

// Winner 获胜方
type Winner struct {
	Team  int   `json:"team"`
	Seats []int `json:"players"`
}

// MoveRecord 走子记录
type MoveRecord struct {
	UserID    string        `json:"playerId"`
	PieceID   string        `json:"pieceId"`
	From      Position      `json:"from"`
	To        Position      `json:"to"`
	Timestamp int64         `json:"timestamp"`
	Result    *BattleResult `json:"result,omitempty"`
}

// GameState 一局游戏的完整状态
type GameState struct {
	RoomID      string       `json:"roomId"`
	Variant     Variant      `json:"variant"`
	Status      GameStatus   `json:"status"`
	Players     []*Player    `json:"players"` // 按座位排列
	Board       *Board       `json:"board"`
	CurrentTurn int          `json:"currentTurn"`
	History     []MoveRecord `json:"moveHistory"`
	Winner      *Winner      `json:"winner,omitempty"`
	CreatedAt   int64        `json:"createdAt"`
	StartedAt   int64        `json:"startedAt,omitempty"`
	EndedAt     int64        `json:"endedAt,omitempty"`

	index map[string]*Piece
}

// NewGameState 由已布阵的玩家构建开局状态，players 必须按座位排列且坐满
func NewGameState(roomID string, variant Variant, players []*Player, now time.Time) (*GameState, error) {
	g := GeometryFor(variant)
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, variant)
	}
	if len(players) != g.Seats {
		return nil, fmt.Errorf("%w: 需要 %d 名玩家，实际 %d 名", ErrInvalidSeat, g.Seats, len(players))
	}

	gs := &GameState{
		RoomID:    roomID,
		Variant:   variant,
		Status:    StatusPlaying,
		Players:   players,
		Board:     NewBoard(g),
		History:   make([]MoveRecord, 0, 64),
		CreatedAt: now.UnixMilli(),
		StartedAt: now.UnixMilli(),
	}
	for seat, p := range players {
		if p == nil || p.Seat != seat {
			return nil, fmt.Errorf("%w: 座位 %d 玩家缺失", ErrInvalidSeat, seat)
		}
		p.Team = g.TeamOf(seat)
		p.Alive = true
		if err := PlaceOnBoard(gs.Board, p.Pieces); err != nil {
			return nil, err
		}
	}
	gs.reindex()
	if err := gs.CheckConsistency(); err != nil {
		return nil, err
	}
	gs.CurrentTurn = 0
	return gs, nil
}

// Geometry 对局所用的棋盘几何
func (gs *GameState) Geometry() *Geometry {
	return GeometryFor(gs.Variant)
}

func (gs *GameState) reindex() {
	gs.index = make(map[string]*Piece, len(gs.Players)*PiecesPerSeat)
	for _, p := range gs.Players {
		for _, piece := range p.Pieces {
			gs.index[piece.ID] = piece
		}
	}
}

// Piece 按 ID 查找棋子
func (gs *GameState) Piece(id string) *Piece {
	if gs.index == nil {
		gs.reindex()
	}
	return gs.index[id]
}

// PieceAt 格子上的棋子
func (gs *GameState) PieceAt(pos Position) *Piece {
	id := gs.Board.At(pos)
	if id == "" {
		return nil
	}
	return gs.Piece(id)
}

// PlayerAt 按座位查找玩家
func (gs *GameState) PlayerAt(seat int) *Player {
	if seat < 0 || seat >= len(gs.Players) {
		return nil
	}
	return gs.Players[seat]
}

// PlayerByUser 按用户查找玩家
func (gs *GameState) PlayerByUser(userID string) *Player {
	for _, p := range gs.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// PieceCount 所有棋子数量（含阵亡）
func (gs *GameState) PieceCount() int {
	n := 0
	for _, p := range gs.Players {
		n += len(p.Pieces)
	}
	return n
}

// CheckConsistency 校验棋盘与存活棋子的位置一一对应
func (gs *GameState) CheckConsistency() error {
	seen := 0
	for _, p := range gs.Players {
		for _, piece := range p.Pieces {
			if !piece.Alive {
				continue
			}
			if got := gs.Board.At(piece.Position); got != piece.ID {
				return fmt.Errorf("%w: 棋子 %s 位于 (%d,%d)，格子中为 %q",
					ErrBoardInconsistent, piece.ID, piece.Position.Row, piece.Position.Col, got)
			}
			seen++
		}
	}
	if n := gs.Board.Count(); n != seen {
		return fmt.Errorf("%w: 棋盘上有 %d 枚棋子，存活 %d 枚", ErrBoardInconsistent, n, seen)
	}
	return nil
}

// Clone 深拷贝，用于广播快照
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	cp := *gs
	cp.Board = gs.Board.Clone()
	cp.Players = make([]*Player, len(gs.Players))
	for i, p := range gs.Players {
		pc := *p
		pc.Pieces = make([]*Piece, len(p.Pieces))
		for j, piece := range p.Pieces {
			pc.Pieces[j] = piece.Clone()
		}
		cp.Players[i] = &pc
	}
	cp.History = make([]MoveRecord, len(gs.History))
	for i, m := range gs.History {
		cp.History[i] = m
		if m.Result != nil {
			r := *m.Result
			cp.History[i].Result = &r
		}
	}
	if gs.Winner != nil {
		w := Winner{Team: gs.Winner.Team, Seats: append([]int(nil), gs.Winner.Seats...)}
		cp.Winner = &w
	}
	cp.index = nil
	return &cp
}

// MoveOutcome 一次走子的结果
type MoveOutcome struct {
	Record MoveRecord
	Ended  bool
	Winner *Winner
}

// ExecuteMove 执行一步走子：校验、战斗、记录、淘汰判定、胜负判定、轮转
// 返回错误时状态不变
func ExecuteMove(gs *GameState, userID, pieceID string, to Position, now time.Time) (*MoveOutcome, error) {
	if gs.Status != StatusPlaying {
		return nil, ErrGameNotPlaying
	}
	player := gs.PlayerByUser(userID)
	if player == nil {
		return nil, ErrNotYourPiece
	}
	if player.Seat != gs.CurrentTurn {
		return nil, ErrNotYourTurn
	}
	piece := gs.Piece(pieceID)
	if piece == nil {
		return nil, fmt.Errorf("%w: %s", ErrPieceNotFound, pieceID)
	}
	if piece.Owner != player.Seat {
		return nil, ErrNotYourPiece
	}
	if !piece.Alive {
		return nil, ErrPieceDead
	}
	if err := ValidateMove(piece, to, gs); err != nil {
		return nil, err
	}

	from := piece.Position
	if gs.Board.At(from) != piece.ID {
		return nil, fmt.Errorf("%w: 棋子 %s 不在 (%d,%d)", ErrBoardInconsistent, piece.ID, from.Row, from.Col)
	}

	var result *BattleResult
	defender := gs.PieceAt(to)
	if id := gs.Board.At(to); id != "" && (defender == nil || !defender.Alive) {
		return nil, fmt.Errorf("%w: 格子 (%d,%d) 中的棋子 %s 已不存在", ErrBoardInconsistent, to.Row, to.Col, id)
	}

	gs.Board.clear(from)
	if defender != nil {
		r := CalculateBattle(piece, defender)
		result = &r
		piece.Revealed = true
		defender.Revealed = true
		if !r.DefenderSurvived {
			defender.Alive = false
			gs.Board.clear(to)
		}
		if r.AttackerSurvived {
			piece.Position = to
			gs.Board.set(to, piece.ID)
		} else {
			piece.Alive = false
		}
	} else {
		piece.Position = to
		gs.Board.set(to, piece.ID)
	}

	record := MoveRecord{
		UserID:    userID,
		PieceID:   pieceID,
		From:      from,
		To:        to,
		Timestamp: now.UnixMilli(),
		Result:    result,
	}
	gs.History = append(gs.History, record)

	if defender != nil {
		markEliminated(gs, defender.Owner)
		markEliminated(gs, piece.Owner)
	}

	outcome := &MoveOutcome{Record: record}
	if ended, winner := CheckGameEnd(gs); ended {
		gs.Status = StatusFinished
		gs.Winner = winner
		gs.EndedAt = now.UnixMilli()
		outcome.Ended = true
		outcome.Winner = winner
	} else {
		gs.CurrentTurn = NextPlayer(gs.CurrentTurn, gs)
	}
	return outcome, nil
}

func markEliminated(gs *GameState, seat int) {
	p := gs.PlayerAt(seat)
	if p != nil && p.Alive && IsEliminated(seat, gs) {
		p.Alive = false
	}
}
