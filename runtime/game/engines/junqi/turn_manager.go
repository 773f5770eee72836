package junqi

// NextPlayer 下一个行棋的座位：按座位顺序轮转，跳过已淘汰的玩家
// 所有玩家都已淘汰时返回 current
func NextPlayer(current int, gs *GameState) int {
	seats := len(gs.Players)
	if seats == 0 {
		return current
	}
	next := (current + 1) % seats
	for attempts := 0; attempts < seats; attempts++ {
		if p := gs.PlayerAt(next); p != nil && p.Alive {
			return next
		}
		next = (next + 1) % seats
	}
	return current
}
