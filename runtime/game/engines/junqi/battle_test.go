package junqi

import "testing"

var rankedKinds = []PieceKind{Engineer, Platoon, Company, Battalion, Colonel, Brigadier, MajorGeneral, General, Commander}

func battle(a, d PieceKind) BattleResult {
	return CalculateBattle(&Piece{Kind: a, Owner: 0}, &Piece{Kind: d, Owner: 1})
}

func TestCalculateBattle_RankOrder(t *testing.T) {
	for _, a := range rankedKinds {
		for _, d := range rankedKinds {
			r := battle(a, d)
			switch {
			case a.Rank() > d.Rank():
				if !r.AttackerSurvived || r.DefenderSurvived {
					t.Fatalf("%s vs %s: attacker should win, got %+v", a, d, r)
				}
			case a.Rank() < d.Rank():
				if r.AttackerSurvived || !r.DefenderSurvived {
					t.Fatalf("%s vs %s: defender should win, got %+v", a, d, r)
				}
			default:
				if r.AttackerSurvived || r.DefenderSurvived {
					t.Fatalf("%s vs %s: both should die, got %+v", a, d, r)
				}
			}
			// 交换攻守，结果对称
			rev := battle(d, a)
			if a != d && (rev.AttackerSurvived != r.DefenderSurvived || rev.DefenderSurvived != r.AttackerSurvived) {
				t.Fatalf("%s vs %s: outcome not symmetric", a, d)
			}
		}
	}
}

func TestCalculateBattle_SpecialPieces(t *testing.T) {
	for _, a := range rankedKinds {
		bomb := battle(a, Bomb)
		mine := battle(a, Landmine)
		flag := battle(a, Flag)

		if a == Engineer {
			if !bomb.AttackerSurvived || bomb.DefenderSurvived {
				t.Fatalf("engineer should defuse bomb, got %+v", bomb)
			}
			if !mine.AttackerSurvived || mine.DefenderSurvived {
				t.Fatalf("engineer should clear landmine, got %+v", mine)
			}
		} else {
			if bomb.AttackerSurvived || bomb.DefenderSurvived {
				t.Fatalf("%s vs bomb: both should die, got %+v", a, bomb)
			}
			if mine.AttackerSurvived || !mine.DefenderSurvived {
				t.Fatalf("%s vs landmine: mine should stay, got %+v", a, mine)
			}
		}
		if !flag.AttackerSurvived || flag.DefenderSurvived {
			t.Fatalf("%s vs flag: flag should be captured, got %+v", a, flag)
		}
	}
}

func TestCalculateBattle_Message(t *testing.T) {
	if got := battle(Commander, General).Message; got != "司 击败 军" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := battle(Platoon, Platoon).Message; got != "势均力敌，同归于尽" {
		t.Fatalf("unexpected message %q", got)
	}
}
