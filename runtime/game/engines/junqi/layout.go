package junqi

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// Placement 玩家提交的布阵：棋子类型和位置
// 客户端提交的完整 Piece 也可以直接解码成 Placement
type Placement struct {
	Kind     PieceKind `json:"type"`
	Position Position  `json:"position"`
}

// LayoutPolicy 布阵的可选约束，默认全部关闭
type LayoutPolicy struct {
	RequireFlagInHeadquarters  bool `json:"requireFlagInHeadquarters"`
	RequireLandminesInBackRows bool `json:"requireLandminesInBackRows"`
	ForbidCampPlacement        bool `json:"forbidCampPlacement"`
}

// StrictPolicy 打开所有约束
var StrictPolicy = LayoutPolicy{
	RequireFlagInHeadquarters:  true,
	RequireLandminesInBackRows: true,
	ForbidCampPlacement:        true,
}

// StandardPieces 生成座位的 25 枚标准棋子，均未放置
func StandardPieces(seat int) []*Piece {
	pieces := make([]*Piece, 0, PiecesPerSeat)
	for _, kc := range StandardPieceTable {
		for i := 0; i < kc.Count; i++ {
			pieces = append(pieces, &Piece{
				ID:       uuid.NewString(),
				Kind:     kc.Kind,
				Owner:    seat,
				Position: Unplaced,
				Alive:    true,
			})
		}
	}
	return pieces
}

// ValidateLayout 校验布阵
func (g *Geometry) ValidateLayout(layout []Placement, seat int, policy LayoutPolicy) error {
	if !g.ValidSeat(seat) {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if len(layout) != PiecesPerSeat {
		return fmt.Errorf("%w: 需要 %d 枚，实际 %d 枚", ErrPieceCount, PiecesPerSeat, len(layout))
	}

	counts := make(map[PieceKind]int, len(StandardPieceTable))
	for _, p := range layout {
		if !p.Kind.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownPieceKind, p.Kind)
		}
		counts[p.Kind]++
	}
	for _, kc := range StandardPieceTable {
		if counts[kc.Kind] != kc.Count {
			return fmt.Errorf("%w: %s 需要 %d 枚，实际 %d 枚", ErrKindCount, kc.Kind.Name(), kc.Count, counts[kc.Kind])
		}
	}

	occupied := make([]bool, g.Size())
	for _, p := range layout {
		if !p.Position.IsPlaced() {
			return fmt.Errorf("%w: %s", ErrPieceUnplaced, p.Kind.Name())
		}
		if !g.InTerritory(p.Position, seat) {
			return fmt.Errorf("%w: %s (%d,%d)", ErrOutsideTerritory, p.Kind.Name(), p.Position.Row, p.Position.Col)
		}
		idx := g.Index(p.Position)
		if occupied[idx] {
			return fmt.Errorf("%w: (%d,%d)", ErrDuplicatePosition, p.Position.Row, p.Position.Col)
		}
		occupied[idx] = true

		if policy.ForbidCampPlacement && g.IsCamp(p.Position) {
			return fmt.Errorf("%w: %s (%d,%d)", ErrPieceOnCamp, p.Kind.Name(), p.Position.Row, p.Position.Col)
		}
		if policy.RequireFlagInHeadquarters && p.Kind == Flag && !g.IsHeadquarters(p.Position, seat) {
			return ErrFlagNotInHQ
		}
		if policy.RequireLandminesInBackRows && p.Kind == Landmine && !g.InBackRows(p.Position, seat) {
			return fmt.Errorf("%w: (%d,%d)", ErrLandmineNotInBack, p.Position.Row, p.Position.Col)
		}
	}
	return nil
}

// AssignLayout 生成座位的标准棋子，并按类型依次套用布阵中的位置
// 返回的棋子按棋盘位置排序，顺序与棋子类型无关，隐藏棋子时不会从下标推出类型
// 调用前布阵必须已通过 ValidateLayout
func AssignLayout(seat int, layout []Placement) ([]*Piece, error) {
	byKind := make(map[PieceKind][]Position, len(StandardPieceTable))
	for _, p := range layout {
		byKind[p.Kind] = append(byKind[p.Kind], p.Position)
	}
	pieces := StandardPieces(seat)
	for _, piece := range pieces {
		queue := byKind[piece.Kind]
		if len(queue) == 0 {
			return nil, fmt.Errorf("%w: 缺少 %s", ErrKindCount, piece.Kind.Name())
		}
		piece.Position = queue[0]
		byKind[piece.Kind] = queue[1:]
	}
	sort.Slice(pieces, func(a, b int) bool {
		pa, pb := pieces[a].Position, pieces[b].Position
		if pa.Row != pb.Row {
			return pa.Row < pb.Row
		}
		return pa.Col < pb.Col
	})
	return pieces, nil
}

// 标准布阵，按本地坐标排列，"" 为行营
var standardGrid = [TerritoryRows][TerritoryCols]PieceKind{
	{Landmine, Flag, Landmine, Company, Landmine},
	{Bomb, "", Engineer, "", Bomb},
	{Platoon, Platoon, "", Platoon, Company},
	{Battalion, "", Colonel, "", Battalion},
	{Brigadier, MajorGeneral, Colonel, MajorGeneral, Brigadier},
	{Engineer, General, Commander, Company, Engineer},
}

// StandardLayout 固定布阵，满足所有可选约束
func (g *Geometry) StandardLayout(seat int) []Placement {
	layout := make([]Placement, 0, PiecesPerSeat)
	for r := 0; r < TerritoryRows; r++ {
		for c := 0; c < TerritoryCols; c++ {
			kind := standardGrid[r][c]
			if kind == "" {
				continue
			}
			layout = append(layout, Placement{Kind: kind, Position: g.Global(seat, r, c)})
		}
	}
	return layout
}

// RandomLayout 随机布阵：军旗在大本营，地雷在后两排，其余棋子随机分布在非行营位置
func (g *Geometry) RandomLayout(seat int, rng *rand.Rand) []Placement {
	var back, front []Position
	for r := 0; r < TerritoryRows; r++ {
		for c := 0; c < TerritoryCols; c++ {
			if containsCell(campCells, r, c) {
				continue
			}
			pos := g.Global(seat, r, c)
			if r <= 1 {
				back = append(back, pos)
			} else {
				front = append(front, pos)
			}
		}
	}

	layout := make([]Placement, 0, PiecesPerSeat)
	hq := headquartersCells[rng.Intn(len(headquartersCells))]
	flagPos := g.Global(seat, hq.r, hq.c)
	layout = append(layout, Placement{Kind: Flag, Position: flagPos})
	back = removePosition(back, flagPos)

	rng.Shuffle(len(back), func(i, j int) { back[i], back[j] = back[j], back[i] })
	mines := StandardCount(Landmine)
	for i := 0; i < mines; i++ {
		layout = append(layout, Placement{Kind: Landmine, Position: back[i]})
	}

	rest := append(front, back[mines:]...)
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	idx := 0
	for _, kc := range StandardPieceTable {
		if kc.Kind == Flag || kc.Kind == Landmine {
			continue
		}
		for i := 0; i < kc.Count; i++ {
			layout = append(layout, Placement{Kind: kc.Kind, Position: rest[idx]})
			idx++
		}
	}
	return layout
}

func removePosition(list []Position, target Position) []Position {
	out := list[:0]
	for _, p := range list {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}

// LayoutOf 从棋子中取出布阵
func LayoutOf(pieces []*Piece) []Placement {
	layout := make([]Placement, 0, len(pieces))
	for _, p := range pieces {
		layout = append(layout, Placement{Kind: p.Kind, Position: p.Position})
	}
	return layout
}
