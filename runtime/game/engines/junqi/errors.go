package junqi

import "errors"

// 布局校验错误
var (
	ErrPieceCount         = errors.New("棋子数量不正确")
	ErrKindCount          = errors.New("棋子类型数量不正确")
	ErrPieceUnplaced      = errors.New("有棋子未放置")
	ErrOutsideTerritory   = errors.New("棋子位置不在阵地内")
	ErrDuplicatePosition  = errors.New("有重复的棋子位置")
	ErrFlagNotInHQ        = errors.New("军旗必须放在大本营")
	ErrLandmineNotInBack  = errors.New("地雷必须放在最后两行")
	ErrPieceOnCamp        = errors.New("行营不能布子")
	ErrUnknownPieceKind   = errors.New("未知的棋子类型")
	ErrInvalidSeat        = errors.New("无效的座位")
	ErrUnsupportedVariant = errors.New("不支持的棋盘类型")
)

// 走子错误
var (
	ErrPieceImmovable     = errors.New("该棋子不能移动")
	ErrIllegalDestination = errors.New("不能移动到该位置")
	ErrAttackAlly         = errors.New("不能攻击盟友")
	ErrAttackCamp         = errors.New("不能攻击行营中的棋子")
)

// ErrBoardInconsistent 棋盘与棋子位置不一致
var ErrBoardInconsistent = errors.New("棋盘状态不一致")
