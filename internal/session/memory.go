package session

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
)

type memoryState struct {
	orderID      snowflake.ID
	orderToken   string
	checkOrderID snowflake.ID
	checkToken   string
	checkCounter int
}

// MemoryStore keeps session state in process memory. Suitable for a single
// instance deployment and for tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memoryState)}
}

func (s *MemoryStore) state(sessionID string) *memoryState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &memoryState{}
		s.sessions[sessionID] = st
	}
	return st
}

func (s *MemoryStore) IssueOrderToken(ctx context.Context, sessionID string, orderID snowflake.ID) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(sessionID)
	st.orderID = orderID
	st.orderToken = token
	return token, nil
}

func (s *MemoryStore) ConsumeOrderToken(ctx context.Context, sessionID string, orderID snowflake.ID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	valid := st.orderToken != "" && st.orderID == orderID && st.orderToken == token
	st.orderID = 0
	st.orderToken = ""
	return valid, nil
}

func (s *MemoryStore) IssueCheckToken(ctx context.Context, sessionID string, orderID snowflake.ID) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(sessionID)
	st.checkOrderID = orderID
	st.checkToken = token
	st.checkCounter = checkAttempts
	return token, nil
}

func (s *MemoryStore) CheckOrderID(ctx context.Context, sessionID string, token string) (snowflake.ID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok || st.checkToken == "" || st.checkToken != token {
		return 0, false, nil
	}
	return st.checkOrderID, true, nil
}

func (s *MemoryStore) ConsumeCheckAttempt(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return false, ErrNoSession
	}
	st.checkCounter--
	return st.checkCounter > 0, nil
}
