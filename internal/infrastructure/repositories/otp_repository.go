package repositories

import (
	"context"
	"time"

	"github.com/you/trainerauth/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OTPRepositoryImpl implements domain.OTPRepository using GORM
type OTPRepositoryImpl struct {
	db *gorm.DB
}

// DBOTPRecord holds at most one active code per (subject, channel)
type DBOTPRecord struct {
	ID           uint      `gorm:"primaryKey"`
	SubjectID    string    `gorm:"size:255;not null;uniqueIndex:idx_otp_subject_channel"`
	Channel      string    `gorm:"size:16;not null;uniqueIndex:idx_otp_subject_channel"`
	CodeHash     string    `gorm:"size:128;not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	AttemptCount int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBOTPRecord) TableName() string {
	return "otp_records"
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) domain.OTPRepository {
	return &OTPRepositoryImpl{db: db}
}

// Replace deletes any previous code for the pair and stores record in its place
func (r *OTPRepositoryImpl) Replace(ctx context.Context, record *domain.OTPRecord) error {
	m := &DBOTPRecord{
		SubjectID:    record.SubjectID,
		Channel:      string(record.Channel),
		CodeHash:     record.CodeHash,
		ExpiresAt:    record.ExpiresAt.UTC(),
		AttemptCount: record.AttemptCount,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subject_id = ? AND channel = ?", m.SubjectID, m.Channel).
			Delete(&DBOTPRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return translateError(err)
	}
	record.ID = m.ID
	record.CreatedAt = m.CreatedAt
	return nil
}

// FindForUpdate implements domain.OTPRepository
func (r *OTPRepositoryImpl) FindForUpdate(ctx context.Context, subjectID string, channel domain.OTPChannel) (*domain.OTPRecord, error) {
	var m DBOTPRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subject_id = ? AND channel = ?", subjectID, string(channel)).
		First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &domain.OTPRecord{
		ID:           m.ID,
		SubjectID:    m.SubjectID,
		Channel:      domain.OTPChannel(m.Channel),
		CodeHash:     m.CodeHash,
		ExpiresAt:    m.ExpiresAt,
		AttemptCount: m.AttemptCount,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// IncrementAttempts implements domain.OTPRepository
func (r *OTPRepositoryImpl) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&DBOTPRecord{}).
		Where("id = ?", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

// Delete implements domain.OTPRepository
func (r *OTPRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&DBOTPRecord{}, id).Error
}

// WithinTransaction runs fn against a repository bound to one transaction
func (r *OTPRepositoryImpl) WithinTransaction(ctx context.Context, fn func(repo domain.OTPRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&OTPRepositoryImpl{db: tx})
	})
}
