package junqi

// PieceKind 棋子类型
type PieceKind string

const (
	Flag         PieceKind = "FLAG"          // 军旗
	Bomb         PieceKind = "BOMB"          // 炸弹
	Landmine     PieceKind = "LANDMINE"      // 地雷
	Commander    PieceKind = "COMMANDER"     // 司令
	General      PieceKind = "GENERAL"       // 军长
	MajorGeneral PieceKind = "MAJOR_GENERAL" // 师长
	Brigadier    PieceKind = "BRIGADIER"     // 旅长
	Colonel      PieceKind = "COLONEL"       // 团长
	Battalion    PieceKind = "BATTALION"     // 营长
	Company      PieceKind = "COMPANY"       // 连长
	Platoon      PieceKind = "PLATOON"       // 排长
	Engineer     PieceKind = "ENGINEER"      // 工兵

	// Unknown 对其他玩家隐藏身份的棋子
	Unknown PieceKind = "UNKNOWN"
)

// PiecesPerSeat 每个座位的棋子总数
const PiecesPerSeat = 25

var pieceRank = map[PieceKind]int{
	Flag:         0,
	Landmine:     0,
	Bomb:         0,
	Engineer:     1,
	Platoon:      2,
	Company:      3,
	Battalion:    4,
	Colonel:      5,
	Brigadier:    6,
	MajorGeneral: 7,
	General:      8,
	Commander:    9,
}

var pieceNames = map[PieceKind]string{
	Flag:         "旗",
	Bomb:         "炸",
	Landmine:     "雷",
	Commander:    "司",
	General:      "军",
	MajorGeneral: "师",
	Brigadier:    "旅",
	Colonel:      "团",
	Battalion:    "营",
	Company:      "连",
	Platoon:      "排",
	Engineer:     "工",
}

// KindCount 标准配置中某一类棋子的数量
type KindCount struct {
	Kind  PieceKind
	Count int
}

// StandardPieceTable 每个座位的标准棋子配置，顺序即 StandardPieces 的生成顺序
var StandardPieceTable = []KindCount{
	{Flag, 1},
	{Commander, 1},
	{General, 1},
	{MajorGeneral, 2},
	{Brigadier, 2},
	{Colonel, 2},
	{Battalion, 2},
	{Bomb, 2},
	{Company, 3},
	{Platoon, 3},
	{Engineer, 3},
	{Landmine, 3},
}

// Rank 棋子等级，军旗、地雷、炸弹为 0
func (k PieceKind) Rank() int {
	return pieceRank[k]
}

// Valid 是否为已知的棋子类型（不含 Unknown）
func (k PieceKind) Valid() bool {
	_, ok := pieceRank[k]
	return ok
}

// Movable 军旗、地雷、炸弹不能移动
func (k PieceKind) Movable() bool {
	switch k {
	case Flag, Landmine, Bomb:
		return false
	}
	return k.Valid()
}

// Name 棋子简称
func (k PieceKind) Name() string {
	if name, ok := pieceNames[k]; ok {
		return name
	}
	return "?"
}

// StandardCount 标准配置中该类型的数量
func StandardCount(kind PieceKind) int {
	for _, kc := range StandardPieceTable {
		if kc.Kind == kind {
			return kc.Count
		}
	}
	return 0
}

// Position 棋盘坐标
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Unplaced 未放置棋子的坐标
var Unplaced = Position{Row: -1, Col: -1}

func (p Position) IsPlaced() bool {
	return p.Row >= 0 && p.Col >= 0
}

// Piece 棋子
type Piece struct {
	ID       string    `json:"id"`
	Kind     PieceKind `json:"type"`
	Owner    int       `json:"owner"`
	Position Position  `json:"position"`
	Alive    bool      `json:"isAlive"`
	Revealed bool      `json:"isRevealed"`
}

func (p *Piece) Clone() *Piece {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
