package repositories

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepositoryImpl implements domain.RefreshTokenRepository using GORM
type RefreshTokenRepositoryImpl struct {
	db *gorm.DB
}

// DBRefreshToken stores the hash of an issued refresh token, never the token itself
type DBRefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	TrainerID uint      `gorm:"index;not null"`
	SessionID string    `gorm:"index;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	UserAgent string `gorm:"size:512"`
	IP        string `gorm:"size:64"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (DBRefreshToken) TableName() string {
	return "refresh_tokens"
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB) domain.RefreshTokenRepository {
	return &RefreshTokenRepositoryImpl{db: db}
}

// Create implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) Create(ctx context.Context, record *domain.RefreshTokenRecord) error {
	m := &DBRefreshToken{
		TokenHash: record.TokenHash,
		TrainerID: record.TrainerID,
		SessionID: record.SessionID,
		ExpiresAt: record.ExpiresAt.UTC(),
		RevokedAt: utcPtr(record.RevokedAt),
		UserAgent: record.Meta.UserAgent,
		IP:        record.Meta.IP,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	record.ID = m.ID
	record.CreatedAt = m.CreatedAt
	return nil
}

// FindByHash implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) FindByHash(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error) {
	var m DBRefreshToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.toDomain(), nil
}

// FindByHashForUpdate implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) FindByHashForUpdate(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error) {
	var m DBRefreshToken
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_hash = ?", tokenHash).
		First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return m.toDomain(), nil
}

// HasNewerLive reports whether the trainer holds a live token issued after afterID
func (r *RefreshTokenRepositoryImpl) HasNewerLive(ctx context.Context, trainerID, afterID uint, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&DBRefreshToken{}).
		Where("trainer_id = ? AND id > ? AND revoked_at IS NULL AND expires_at > ?", trainerID, afterID, now.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Revoke implements domain.RefreshTokenRepository. Revoking twice keeps the first timestamp.
func (r *RefreshTokenRepositoryImpl) Revoke(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&DBRefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at.UTC()).Error
}

// RevokeAllForTrainer implements domain.RefreshTokenRepository
func (r *RefreshTokenRepositoryImpl) RevokeAllForTrainer(ctx context.Context, trainerID uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&DBRefreshToken{}).
		Where("trainer_id = ? AND revoked_at IS NULL", trainerID).
		Update("revoked_at", at.UTC())
	return result.RowsAffected, result.Error
}

// WithinTransaction runs fn against a repository bound to one transaction
func (r *RefreshTokenRepositoryImpl) WithinTransaction(ctx context.Context, fn func(repo domain.RefreshTokenRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RefreshTokenRepositoryImpl{db: tx})
	})
}

func (m *DBRefreshToken) toDomain() *domain.RefreshTokenRecord {
	return &domain.RefreshTokenRecord{
		ID:        m.ID,
		TokenHash: m.TokenHash,
		TrainerID: m.TrainerID,
		SessionID: m.SessionID,
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		CreatedAt: m.CreatedAt,
		Meta:      domain.ClientMeta{UserAgent: m.UserAgent, IP: m.IP},
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
