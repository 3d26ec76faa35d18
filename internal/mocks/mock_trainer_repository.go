package mocks

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
)

// MockTrainerRepository implements domain.TrainerRepository interface for testing
type MockTrainerRepository struct {
	CreateFunc                func(ctx context.Context, trainer *domain.Trainer) error
	FindByIDFunc              func(ctx context.Context, id uint) (*domain.Trainer, error)
	FindByEmailFunc           func(ctx context.Context, email string) (*domain.Trainer, error)
	FindByPhoneFunc           func(ctx context.Context, phone string) (*domain.Trainer, error)
	FindByExternalSubjectFunc func(ctx context.Context, subject string) (*domain.Trainer, error)
	UpdateFunc                func(ctx context.Context, trainer *domain.Trainer) error
	TransferPhoneFunc         func(ctx context.Context, fromID, toID uint, phone string) error
	UpdatePasswordFunc        func(ctx context.Context, id uint, passwordHash string) error
	MarkEmailVerifiedFunc     func(ctx context.Context, id uint) error
	MarkPhoneVerifiedFunc     func(ctx context.Context, id uint) error
	TouchLastLoginFunc        func(ctx context.Context, id uint, at time.Time) error
}

// NewMockTrainerRepository creates a new MockTrainerRepository with default behaviors
func NewMockTrainerRepository() *MockTrainerRepository {
	return &MockTrainerRepository{}
}

// Create creates a new trainer
func (m *MockTrainerRepository) Create(ctx context.Context, trainer *domain.Trainer) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, trainer)
	}
	return nil
}

// FindByID finds a trainer by ID
func (m *MockTrainerRepository) FindByID(ctx context.Context, id uint) (*domain.Trainer, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrRecordNotFound
}

// FindByEmail finds a trainer by email
func (m *MockTrainerRepository) FindByEmail(ctx context.Context, email string) (*domain.Trainer, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrRecordNotFound
}

// FindByPhone finds a trainer by phone number
func (m *MockTrainerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Trainer, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return nil, domain.ErrRecordNotFound
}

// FindByExternalSubject finds a trainer by OAuth subject
func (m *MockTrainerRepository) FindByExternalSubject(ctx context.Context, subject string) (*domain.Trainer, error) {
	if m.FindByExternalSubjectFunc != nil {
		return m.FindByExternalSubjectFunc(ctx, subject)
	}
	return nil, domain.ErrRecordNotFound
}

// Update updates an existing trainer
func (m *MockTrainerRepository) Update(ctx context.Context, trainer *domain.Trainer) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, trainer)
	}
	return nil
}

// TransferPhone moves a phone between trainers
func (m *MockTrainerRepository) TransferPhone(ctx context.Context, fromID, toID uint, phone string) error {
	if m.TransferPhoneFunc != nil {
		return m.TransferPhoneFunc(ctx, fromID, toID, phone)
	}
	return nil
}

// UpdatePassword replaces the password hash
func (m *MockTrainerRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MarkEmailVerified marks the email verified
func (m *MockTrainerRepository) MarkEmailVerified(ctx context.Context, id uint) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil
}

// MarkPhoneVerified marks the phone verified
func (m *MockTrainerRepository) MarkPhoneVerified(ctx context.Context, id uint) error {
	if m.MarkPhoneVerifiedFunc != nil {
		return m.MarkPhoneVerifiedFunc(ctx, id)
	}
	return nil
}

// TouchLastLogin records a login time
func (m *MockTrainerRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(ctx, id, at)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.TrainerRepository = (*MockTrainerRepository)(nil)
