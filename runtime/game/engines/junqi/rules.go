package junqi

var directions = [4]Position{
	{Row: -1, Col: 0}, // 上
	{Row: 1, Col: 0},  // 下
	{Row: 0, Col: -1}, // 左
	{Row: 0, Col: 1},  // 右
}

func step(p, d Position) Position {
	return Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
}

// CanMove 棋子本回合能否移动
func CanMove(piece *Piece, gs *GameState) bool {
	if piece == nil || !piece.Alive || !piece.Kind.Movable() {
		return false
	}
	if gs.Status != StatusPlaying || piece.Owner != gs.CurrentTurn {
		return false
	}
	owner := gs.PlayerAt(piece.Owner)
	return owner != nil && owner.Alive
}

// PossibleMoves 棋子所有可到达的位置
//   - 在己方阵地内：上下左右走一步
//   - 在己方阵地外的铁路上：只走铁路，普通棋子直线滑行，工兵可沿铁路拐弯飞行
//   - 其他位置：走一步
func PossibleMoves(piece *Piece, gs *GameState) []Position {
	if !CanMove(piece, gs) {
		return nil
	}
	g := gs.Geometry()
	pos := piece.Position

	if g.InTerritory(pos, piece.Owner) || !g.IsRailway(pos) {
		return stepMoves(pos, piece, gs, g)
	}

	if piece.Kind == Engineer {
		return engineerRailwayMoves(pos, piece, gs, g)
	}
	return railwayLineMoves(pos, piece, gs, g)
}

func stepMoves(pos Position, piece *Piece, gs *GameState, g *Geometry) []Position {
	moves := make([]Position, 0, 4)
	for _, d := range directions {
		next := step(pos, d)
		if !g.IsPlayable(next) {
			continue
		}
		if target := gs.PieceAt(next); target != nil {
			if g.IsAlly(piece.Owner, target.Owner) || g.IsCamp(next) {
				continue
			}
		}
		moves = append(moves, next)
	}
	return moves
}

// 普通棋子沿铁路直线滑行，遇到棋子即停止，敌方棋子可作为攻击目标
func railwayLineMoves(pos Position, piece *Piece, gs *GameState, g *Geometry) []Position {
	var moves []Position
	for _, d := range directions {
		for next := step(pos, d); g.IsRailway(next); next = step(next, d) {
			target := gs.PieceAt(next)
			if target == nil {
				moves = append(moves, next)
				continue
			}
			if !g.IsAlly(piece.Owner, target.Owner) && !g.IsCamp(next) {
				moves = append(moves, next)
			}
			break
		}
	}
	return moves
}

// 工兵在铁路网上广度优先搜索，可任意拐弯
// 敌方棋子所在格可达但不再扩展，己方棋子所在格阻断且不可达
func engineerRailwayMoves(pos Position, piece *Piece, gs *GameState, g *Geometry) []Position {
	visited := make([]bool, g.Size())
	visited[g.Index(pos)] = true
	queue := []Position{pos}
	var reachable []Position

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			next := step(cur, d)
			if !g.IsRailway(next) {
				continue
			}
			idx := g.Index(next)
			if visited[idx] {
				continue
			}
			visited[idx] = true

			target := gs.PieceAt(next)
			if target == nil {
				reachable = append(reachable, next)
				queue = append(queue, next)
				continue
			}
			if !g.IsAlly(piece.Owner, target.Owner) && !g.IsCamp(next) {
				reachable = append(reachable, next)
			}
		}
	}
	return reachable
}

// ValidateMove 校验走子是否合法，先看目标是否在可达位置中
func ValidateMove(piece *Piece, to Position, gs *GameState) error {
	if !CanMove(piece, gs) {
		return ErrPieceImmovable
	}
	if !containsPosition(PossibleMoves(piece, gs), to) {
		return ErrIllegalDestination
	}
	// 走法生成已排除这两种情况，这里再确认一次
	g := gs.Geometry()
	if target := gs.PieceAt(to); target != nil {
		if g.IsAlly(piece.Owner, target.Owner) {
			return ErrAttackAlly
		}
		if g.IsCamp(to) {
			return ErrAttackCamp
		}
	}
	return nil
}

// IsEliminated 军旗阵亡，或者除军旗、地雷外已无存活棋子
func IsEliminated(seat int, gs *GameState) bool {
	p := gs.PlayerAt(seat)
	if p == nil {
		return true
	}
	hasFlag, hasOther := false, false
	for _, piece := range p.Pieces {
		if !piece.Alive {
			continue
		}
		switch piece.Kind {
		case Flag:
			hasFlag = true
		case Landmine:
		default:
			hasOther = true
		}
	}
	return !hasFlag || !hasOther
}

// CheckGameEnd 判断对局是否结束
// 存活玩家不超过一人，或者存活玩家同属一个联盟时结束
func CheckGameEnd(gs *GameState) (bool, *Winner) {
	alive := make([]*Player, 0, len(gs.Players))
	for _, p := range gs.Players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	switch len(alive) {
	case 0:
		return true, nil
	case 1:
		return true, &Winner{Team: alive[0].Team, Seats: []int{alive[0].Seat}}
	}

	team := alive[0].Team
	seats := make([]int, 0, len(alive))
	for _, p := range alive {
		if p.Team != team {
			return false, nil
		}
		seats = append(seats, p.Seat)
	}
	return true, &Winner{Team: team, Seats: seats}
}

func containsPosition(list []Position, p Position) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
