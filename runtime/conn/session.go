package conn

import (
	"sync"
)

// Session 单个连接的身份和所在房间
type Session struct {
	sync.RWMutex
	ConnID      string // 连接 ID
	userID      string
	displayName string
	authMethod  string
	roomID      string // 当前所在房间，未加入时为空
}

func NewSession(connID, userID, displayName, authMethod string) *Session {
	if displayName == "" {
		displayName = userID
	}
	return &Session{
		ConnID:      connID,
		userID:      userID,
		displayName: displayName,
		authMethod:  authMethod,
	}
}

func (s *Session) GetUserID() string {
	s.RLock()
	defer s.RUnlock()
	return s.userID
}

func (s *Session) GetDisplayName() string {
	s.RLock()
	defer s.RUnlock()
	return s.displayName
}

func (s *Session) SetDisplayName(name string) {
	if name == "" {
		return
	}
	s.Lock()
	s.displayName = name
	s.Unlock()
}

func (s *Session) AuthMethod() string {
	s.RLock()
	defer s.RUnlock()
	return s.authMethod
}

func (s *Session) RoomID() string {
	s.RLock()
	defer s.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(roomID string) {
	s.Lock()
	s.roomID = roomID
	s.Unlock()
}

// ClearRoom 只有当前房间是 roomID 时才清空
func (s *Session) ClearRoom(roomID string) {
	s.Lock()
	defer s.Unlock()
	if s.roomID == roomID {
		s.roomID = ""
	}
}
