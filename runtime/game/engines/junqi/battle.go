package junqi

import "fmt"

// BattleResult 战斗结果
type BattleResult struct {
	Attacker         PieceKind `json:"attackerType"`
	Defender         PieceKind `json:"defenderType"`
	AttackerSurvived bool      `json:"attackerSurvived"`
	DefenderSurvived bool      `json:"defenderSurvived"`
	Message          string    `json:"message"`
}

// CalculateBattle 计算进攻方与防守方的战斗结果
//  1. 炸弹：工兵拆除炸弹，其余同归于尽
//  2. 地雷：工兵挖雷，其余进攻方阵亡，地雷保留
//  3. 军旗：必被夺取
//  4. 其余比较等级，等级相同同归于尽
func CalculateBattle(attacker, defender *Piece) BattleResult {
	r := BattleResult{Attacker: attacker.Kind, Defender: defender.Kind}
	switch defender.Kind {
	case Bomb:
		if attacker.Kind == Engineer {
			r.AttackerSurvived = true
			r.Message = "工兵成功拆除炸弹"
		} else {
			r.Message = "炸弹爆炸，同归于尽"
		}
		return r
	case Landmine:
		if attacker.Kind == Engineer {
			r.AttackerSurvived = true
			r.Message = "工兵成功挖掉地雷"
		} else {
			r.DefenderSurvived = true
			r.Message = "踩到地雷"
		}
		return r
	case Flag:
		r.AttackerSurvived = true
		r.Message = "夺取军旗！"
		return r
	}

	ar, dr := attacker.Kind.Rank(), defender.Kind.Rank()
	switch {
	case ar > dr:
		r.AttackerSurvived = true
		r.Message = fmt.Sprintf("%s 击败 %s", attacker.Kind.Name(), defender.Kind.Name())
	case ar < dr:
		r.DefenderSurvived = true
		r.Message = fmt.Sprintf("%s 击败 %s", defender.Kind.Name(), attacker.Kind.Name())
	default:
		r.Message = "势均力敌，同归于尽"
	}
	return r
}
