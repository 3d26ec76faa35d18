package mocks

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
)

// MockSessionRepository implements domain.SessionRepository interface for testing
type MockSessionRepository struct {
	CreateFunc              func(ctx context.Context, session *domain.Session) error
	FindByIDFunc            func(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchFunc               func(ctx context.Context, sessionID string, at time.Time) error
	DeleteFunc              func(ctx context.Context, sessionID string) error
	DeleteAllForTrainerFunc func(ctx context.Context, trainerID uint) error
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Create creates a new session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

// FindByID finds a session by ID
func (m *MockSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, sessionID)
	}
	// Default behavior: not found
	return nil, domain.ErrRecordNotFound
}

// Touch bumps session activity
func (m *MockSessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, sessionID, at)
	}
	return nil
}

// Delete deletes a session by ID
func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	return nil
}

// DeleteAllForTrainer deletes every session of a trainer
func (m *MockSessionRepository) DeleteAllForTrainer(ctx context.Context, trainerID uint) error {
	if m.DeleteAllForTrainerFunc != nil {
		return m.DeleteAllForTrainerFunc(ctx, trainerID)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.SessionRepository = (*MockSessionRepository)(nil)
