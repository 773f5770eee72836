package game

import (
	"errors"
	"fmt"

	"github.com/Arterning/national-chess/runtime/game/engines/junqi"
)

// 错误分类
var (
	ErrValidation = errors.New("validation error") // 参数、布阵、走子不合法，可恢复
	ErrNotFound   = errors.New("not found")        // 房间、棋子、玩家不存在
	ErrInvariant  = errors.New("invariant violation")
)

// GameError 房间操作返回的错误
// Message 直接发给客户端，Kind 用于 errors.Is 判断分类
type GameError struct {
	Kind    error
	Message string
	cause   error
}

func (e *GameError) Error() string {
	return e.Message
}

func (e *GameError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// NewGameError 房间之外的调用方（例如网关校验参数）构造同样分类的错误
func NewGameError(kind error, format string, args ...any) error {
	return &GameError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &GameError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &GameError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func invariantf(format string, args ...any) error {
	return &GameError{Kind: ErrInvariant, Message: fmt.Sprintf(format, args...)}
}

// classify 把引擎错误归类
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ge *GameError
	if errors.As(err, &ge) {
		return err
	}
	kind := ErrValidation
	switch {
	case errors.Is(err, junqi.ErrBoardInconsistent):
		kind = ErrInvariant
	case errors.Is(err, junqi.ErrPieceNotFound):
		kind = ErrNotFound
	}
	return &GameError{Kind: kind, Message: err.Error(), cause: err}
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvariant(err error) bool { return errors.Is(err, ErrInvariant) }
