package junqi

// Redacted 按观察者座位隐藏未翻开的非盟友棋子类型
// seat < 0 表示观战者，所有未翻开的棋子都会被隐藏
func (gs *GameState) Redacted(seat int) *GameState {
	cp := gs.Clone()
	g := gs.Geometry()
	for _, p := range cp.Players {
		if seat >= 0 && g.IsAlly(seat, p.Seat) {
			continue
		}
		for _, piece := range p.Pieces {
			if !piece.Revealed {
				piece.Kind = Unknown
			}
		}
	}
	return cp
}
