package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/xaenox/intent-bot/internal/models"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	conversations []*models.Conversation
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	stored := *conv
	s.conversations = append(s.conversations, &stored)
	return nil
}

func (s *MemoryStorage) ListUserIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	ids := []int64{}
	for _, c := range s.conversations {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		ids = append(ids, c.UserID)
	}
	return ids, nil
}

func (s *MemoryStorage) GetUserConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Conversation{}
	for _, c := range s.conversations {
		if c.UserID == userID {
			copied := *c
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *MemoryStorage) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		copied := *c
		result = append(result, &copied)
	}
	return result, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
