package junqi

// Variant 棋盘类型
type Variant string

const (
	FourPlayer Variant = "FOUR_PLAYER" // 四国军棋
	TwoPlayer  Variant = "TWO_PLAYER"  // 二人军棋
)

// 阵地大小：纵 6 横 5，本地坐标 r=0 为底线
const (
	TerritoryRows = 6
	TerritoryCols = 5
)

type localCell struct{ r, c int }

var (
	headquartersCells = []localCell{{0, 1}, {0, 3}}
	campCells         = []localCell{{1, 1}, {1, 3}, {2, 2}, {3, 1}, {3, 3}}
)

// Geometry 棋盘几何：阵地、铁路、行营、大本营
// 构建后只读，可在多个房间之间共享
type Geometry struct {
	Variant Variant
	Rows    int
	Cols    int
	Seats   int

	railRow   []bool
	railCol   []bool
	playable  []bool
	territory []int // 阵地所属座位，-1 表示中央区域或空白
	localRow  []int
	localCol  []int
	toGlobal  func(seat, r, c int) Position
}

var (
	fourPlayerGeometry = buildFourPlayer()
	twoPlayerGeometry  = buildTwoPlayer()
)

// GeometryFor 获取棋盘几何，未知类型返回 nil
func GeometryFor(v Variant) *Geometry {
	switch v {
	case FourPlayer:
		return fourPlayerGeometry
	case TwoPlayer:
		return twoPlayerGeometry
	}
	return nil
}

// Capacity 座位数
func (v Variant) Capacity() int {
	if v == TwoPlayer {
		return 2
	}
	if v == FourPlayer {
		return 4
	}
	return 0
}

func (v Variant) Valid() bool {
	return v == FourPlayer || v == TwoPlayer
}

// 四国：17x17，中央 5x5 为九宫区域，四角为空白
func buildFourPlayer() *Geometry {
	g := newGeometry(FourPlayer, 17, 17, 4)
	g.toGlobal = func(seat, r, c int) Position {
		switch seat {
		case 0: // 上
			return Position{Row: r, Col: 6 + c}
		case 1: // 右
			return Position{Row: 6 + c, Col: 16 - r}
		case 2: // 下
			return Position{Row: 16 - r, Col: 10 - c}
		case 3: // 左
			return Position{Row: 10 - c, Col: r}
		}
		return Unplaced
	}
	for _, line := range []int{5, 8, 11} {
		g.railRow[line] = true
		g.railCol[line] = true
	}
	for row := 6; row <= 10; row++ {
		for col := 6; col <= 10; col++ {
			g.playable[g.Index(Position{Row: row, Col: col})] = true
		}
	}
	g.fillTerritories()
	return g
}

// 二人：13x5，中间一行为界河
func buildTwoPlayer() *Geometry {
	g := newGeometry(TwoPlayer, 13, 5, 2)
	g.toGlobal = func(seat, r, c int) Position {
		switch seat {
		case 0:
			return Position{Row: r, Col: c}
		case 1:
			return Position{Row: 12 - r, Col: 4 - c}
		}
		return Unplaced
	}
	for _, row := range []int{1, 5, 7, 11} {
		g.railRow[row] = true
	}
	g.railCol[0] = true
	g.railCol[4] = true
	for col := 0; col < g.Cols; col++ {
		g.playable[g.Index(Position{Row: 6, Col: col})] = true
	}
	g.fillTerritories()
	return g
}

func newGeometry(v Variant, rows, cols, seats int) *Geometry {
	size := rows * cols
	g := &Geometry{
		Variant:   v,
		Rows:      rows,
		Cols:      cols,
		Seats:     seats,
		railRow:   make([]bool, rows),
		railCol:   make([]bool, cols),
		playable:  make([]bool, size),
		territory: make([]int, size),
		localRow:  make([]int, size),
		localCol:  make([]int, size),
	}
	for i := range g.territory {
		g.territory[i] = -1
		g.localRow[i] = -1
		g.localCol[i] = -1
	}
	return g
}

func (g *Geometry) fillTerritories() {
	for seat := 0; seat < g.Seats; seat++ {
		for r := 0; r < TerritoryRows; r++ {
			for c := 0; c < TerritoryCols; c++ {
				idx := g.Index(g.toGlobal(seat, r, c))
				g.playable[idx] = true
				g.territory[idx] = seat
				g.localRow[idx] = r
				g.localCol[idx] = c
			}
		}
	}
}

// Index 稠密下标 row*Cols+col，调用方需保证坐标在界内
func (g *Geometry) Index(p Position) int {
	return p.Row*g.Cols + p.Col
}

func (g *Geometry) Size() int {
	return g.Rows * g.Cols
}

func (g *Geometry) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.Rows && p.Col >= 0 && p.Col < g.Cols
}

// IsPlayable 坐标是否是棋盘上的有效落点
func (g *Geometry) IsPlayable(p Position) bool {
	return g.InBounds(p) && g.playable[g.Index(p)]
}

// IsRailway 所在行或列属于铁路线
func (g *Geometry) IsRailway(p Position) bool {
	if !g.IsPlayable(p) {
		return false
	}
	return g.railRow[p.Row] || g.railCol[p.Col]
}

// TerritoryOwner 阵地所属座位，不在任何阵地返回 -1
func (g *Geometry) TerritoryOwner(p Position) int {
	if !g.InBounds(p) {
		return -1
	}
	return g.territory[g.Index(p)]
}

func (g *Geometry) InTerritory(p Position, seat int) bool {
	return seat >= 0 && g.TerritoryOwner(p) == seat
}

// TerritoryOf 座位阵地的全部坐标，按本地行列顺序
func (g *Geometry) TerritoryOf(seat int) []Position {
	if !g.ValidSeat(seat) {
		return nil
	}
	positions := make([]Position, 0, TerritoryRows*TerritoryCols)
	for r := 0; r < TerritoryRows; r++ {
		for c := 0; c < TerritoryCols; c++ {
			positions = append(positions, g.toGlobal(seat, r, c))
		}
	}
	return positions
}

// Global 本地坐标转棋盘坐标
func (g *Geometry) Global(seat, r, c int) Position {
	if !g.ValidSeat(seat) {
		return Unplaced
	}
	return g.toGlobal(seat, r, c)
}

// Local 棋盘坐标转所属阵地的本地坐标
func (g *Geometry) Local(p Position) (seat, r, c int, ok bool) {
	seat = g.TerritoryOwner(p)
	if seat < 0 {
		return -1, -1, -1, false
	}
	idx := g.Index(p)
	return seat, g.localRow[idx], g.localCol[idx], true
}

// IsCamp 行营，行营中的棋子不能被攻击
func (g *Geometry) IsCamp(p Position) bool {
	_, r, c, ok := g.Local(p)
	if !ok {
		return false
	}
	return containsCell(campCells, r, c)
}

// IsHeadquarters 大本营
func (g *Geometry) IsHeadquarters(p Position, seat int) bool {
	owner, r, c, ok := g.Local(p)
	if !ok || owner != seat {
		return false
	}
	return containsCell(headquartersCells, r, c)
}

// HeadquartersOf 座位的两个大本营
func (g *Geometry) HeadquartersOf(seat int) []Position {
	out := make([]Position, 0, len(headquartersCells))
	for _, cell := range headquartersCells {
		out = append(out, g.Global(seat, cell.r, cell.c))
	}
	return out
}

// InBackRows 是否位于该座位阵地的最后两行
func (g *Geometry) InBackRows(p Position, seat int) bool {
	owner, r, _, ok := g.Local(p)
	return ok && owner == seat && r <= 1
}

func (g *Geometry) ValidSeat(seat int) bool {
	return seat >= 0 && seat < g.Seats
}

// TeamOf 四国按奇偶分为两个联盟，二人各自为营
func (g *Geometry) TeamOf(seat int) int {
	if g.Variant == FourPlayer {
		return seat % 2
	}
	return seat
}

func (g *Geometry) IsAlly(a, b int) bool {
	return g.TeamOf(a) == g.TeamOf(b)
}

func containsCell(cells []localCell, r, c int) bool {
	for _, cell := range cells {
		if cell.r == r && cell.c == c {
			return true
		}
	}
	return false
}
