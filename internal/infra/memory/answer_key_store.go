package memory

import (
	"context"
	"sync"

	"card-quiz/internal/domain"
	"card-quiz/internal/infra/document"
)

// AnswerKeyStore keeps the encoded answer key document in process memory.
type AnswerKeyStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewAnswerKeyStore() *AnswerKeyStore {
	return &AnswerKeyStore{}
}

func (s *AnswerKeyStore) Load(_ context.Context) (domain.AnswerKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return document.DecodeAnswerKey(s.data)
}

func (s *AnswerKeyStore) Save(_ context.Context, key domain.AnswerKey) error {
	data, err := document.EncodeAnswerKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// SetRaw replaces the stored document verbatim.
func (s *AnswerKeyStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}
