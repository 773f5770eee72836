package junqi

import "fmt"

// Board 棋盘，格子里只保存棋子 ID，空串表示空格
type Board struct {
	Rows  int      `json:"rows"`
	Cols  int      `json:"cols"`
	Cells []string `json:"cells"`
}

// NewBoard 创建空棋盘
func NewBoard(g *Geometry) *Board {
	return &Board{
		Rows:  g.Rows,
		Cols:  g.Cols,
		Cells: make([]string, g.Size()),
	}
}

func (b *Board) inBounds(p Position) bool {
	return p.Row >= 0 && p.Row < b.Rows && p.Col >= 0 && p.Col < b.Cols
}

// At 返回格子中的棋子 ID，界外或空格返回空串
func (b *Board) At(p Position) string {
	if !b.inBounds(p) {
		return ""
	}
	return b.Cells[p.Row*b.Cols+p.Col]
}

func (b *Board) Occupied(p Position) bool {
	return b.At(p) != ""
}

func (b *Board) set(p Position, pieceID string) {
	b.Cells[p.Row*b.Cols+p.Col] = pieceID
}

func (b *Board) clear(p Position) {
	if b.inBounds(p) {
		b.Cells[p.Row*b.Cols+p.Col] = ""
	}
}

func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	cells := make([]string, len(b.Cells))
	copy(cells, b.Cells)
	return &Board{Rows: b.Rows, Cols: b.Cols, Cells: cells}
}

// Count 已占用格子数
func (b *Board) Count() int {
	n := 0
	for _, id := range b.Cells {
		if id != "" {
			n++
		}
	}
	return n
}

// PlaceOnBoard 把存活且已放置的棋子写入棋盘，重复调用结果不变
// 目标格已被其他棋子占用时返回错误
func PlaceOnBoard(b *Board, pieces []*Piece) error {
	for _, p := range pieces {
		if p == nil || !p.Alive || !p.Position.IsPlaced() {
			continue
		}
		if !b.inBounds(p.Position) {
			return fmt.Errorf("%w: 棋子 %s 位置 (%d,%d) 越界", ErrBoardInconsistent, p.ID, p.Position.Row, p.Position.Col)
		}
		if cur := b.At(p.Position); cur != "" && cur != p.ID {
			return fmt.Errorf("%w: 格子 (%d,%d) 已被 %s 占用", ErrBoardInconsistent, p.Position.Row, p.Position.Col, cur)
		}
		b.set(p.Position, p.ID)
	}
	return nil
}
