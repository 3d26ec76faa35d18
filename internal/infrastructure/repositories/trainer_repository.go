package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/trainerauth/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// trainerSchemaVersion is bumped whenever DBTrainer gains or changes a column
const trainerSchemaVersion = 1

// TrainerRepositoryImpl implements domain.TrainerRepository using GORM
type TrainerRepositoryImpl struct {
	db *gorm.DB
}

// DBTrainer represents the database model for Trainer (with GORM tags)
type DBTrainer struct {
	ID              uint    `gorm:"primaryKey"`
	Email           *string `gorm:"uniqueIndex;size:255"`
	Phone           *string `gorm:"uniqueIndex;size:32"`
	PasswordHash    *string `gorm:"column:password"`
	ExternalSubject *string `gorm:"uniqueIndex;size:255"`
	IsEmailVerified bool    `gorm:"not null;default:false"`
	IsPhoneVerified bool    `gorm:"not null;default:false"`
	AuthProvider    string  `gorm:"size:32;not null"`
	ApprovalStatus  string  `gorm:"size:32;not null;default:none;index"`
	SchemaVersion   int     `gorm:"not null;default:1"`
	LastLoginAt     *time.Time
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

// TableName returns the table name for GORM
func (DBTrainer) TableName() string {
	return "trainers"
}

// Models lists every table owned by this service, in migration order
func Models() []interface{} {
	return []interface{}{&DBTrainer{}, &DBRefreshToken{}, &DBOTPRecord{}}
}

// NewTrainerRepository creates a new trainer repository
func NewTrainerRepository(db *gorm.DB) domain.TrainerRepository {
	return &TrainerRepositoryImpl{db: db}
}

// Create implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) Create(ctx context.Context, trainer *domain.Trainer) error {
	dbTrainer := r.domainToDB(trainer)
	if err := r.db.WithContext(ctx).Create(dbTrainer).Error; err != nil {
		return translateError(err)
	}
	trainer.ID = dbTrainer.ID
	trainer.CreatedAt = dbTrainer.CreatedAt
	trainer.UpdatedAt = dbTrainer.UpdatedAt
	return nil
}

// FindByID implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Trainer, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Trainer, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByPhone implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*domain.Trainer, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

// FindByExternalSubject implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) FindByExternalSubject(ctx context.Context, subject string) (*domain.Trainer, error) {
	return r.findOne(ctx, "external_subject = ?", subject)
}

func (r *TrainerRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Trainer, error) {
	var dbTrainer DBTrainer
	if err := r.db.WithContext(ctx).Where(query, arg).First(&dbTrainer).Error; err != nil {
		return nil, translateError(err)
	}
	return r.dbToDomain(&dbTrainer), nil
}

// Update implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) Update(ctx context.Context, trainer *domain.Trainer) error {
	dbTrainer := r.domainToDB(trainer)
	if err := r.db.WithContext(ctx).Save(dbTrainer).Error; err != nil {
		return translateError(err)
	}
	trainer.UpdatedAt = dbTrainer.UpdatedAt
	return nil
}

// TransferPhone implements domain.TrainerRepository. Both rows are locked in id order
// so two resolvers racing on the same pair cannot deadlock each other.
func (r *TrainerRepositoryImpl) TransferPhone(ctx context.Context, fromID, toID uint, phone string) error {
	if fromID == toID {
		return fmt.Errorf("transfer phone: source and target are the same trainer")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []DBTrainer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", []uint{fromID, toID}).
			Order("id").
			Find(&rows).Error; err != nil {
			return fmt.Errorf("lock trainers: %w", err)
		}
		if len(rows) != 2 {
			return domain.ErrRecordNotFound
		}

		var from *DBTrainer
		for i := range rows {
			if rows[i].ID == fromID {
				from = &rows[i]
			}
		}
		if from == nil || from.Phone == nil || *from.Phone != phone {
			return domain.ErrPhoneUnavailable
		}
		if domain.ApprovalStatus(from.ApprovalStatus).HasOnboardingMilestone() {
			return domain.ErrPhoneUnavailable
		}

		// clear first: the unique index on phone must never see two holders
		if err := tx.Model(&DBTrainer{}).Where("id = ?", fromID).Updates(map[string]interface{}{
			"phone":             nil,
			"is_phone_verified": false,
		}).Error; err != nil {
			return fmt.Errorf("clear phone: %w", err)
		}
		if err := tx.Model(&DBTrainer{}).Where("id = ?", toID).Updates(map[string]interface{}{
			"phone":             phone,
			"is_phone_verified": false,
		}).Error; err != nil {
			return fmt.Errorf("assign phone: %w", translateError(err))
		}
		return nil
	})
}

// UpdatePassword implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"password": passwordHash})
}

// MarkEmailVerified implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) MarkEmailVerified(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"is_email_verified": true})
}

// MarkPhoneVerified implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) MarkPhoneVerified(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"is_phone_verified": true})
}

// TouchLastLogin implements domain.TrainerRepository
func (r *TrainerRepositoryImpl) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"last_login_at": at.UTC()})
}

func (r *TrainerRepositoryImpl) updateColumns(ctx context.Context, id uint, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&DBTrainer{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// domainToDB converts domain trainer to database trainer
func (r *TrainerRepositoryImpl) domainToDB(trainer *domain.Trainer) *DBTrainer {
	status := trainer.ApprovalStatus
	if status == "" {
		status = domain.ApprovalNone
	}
	return &DBTrainer{
		ID:              trainer.ID,
		Email:           trainer.Email,
		Phone:           trainer.Phone,
		PasswordHash:    trainer.PasswordHash,
		ExternalSubject: trainer.ExternalIdentitySubject,
		IsEmailVerified: trainer.IsEmailVerified,
		IsPhoneVerified: trainer.IsPhoneVerified,
		AuthProvider:    string(trainer.AuthProvider),
		ApprovalStatus:  string(status),
		SchemaVersion:   trainerSchemaVersion,
		LastLoginAt:     trainer.LastLoginAt,
		CreatedAt:       trainer.CreatedAt,
	}
}

// dbToDomain converts database trainer to domain trainer
func (r *TrainerRepositoryImpl) dbToDomain(dbTrainer *DBTrainer) *domain.Trainer {
	return &domain.Trainer{
		ID:                      dbTrainer.ID,
		Email:                   dbTrainer.Email,
		Phone:                   dbTrainer.Phone,
		PasswordHash:            dbTrainer.PasswordHash,
		ExternalIdentitySubject: dbTrainer.ExternalSubject,
		IsEmailVerified:         dbTrainer.IsEmailVerified,
		IsPhoneVerified:         dbTrainer.IsPhoneVerified,
		AuthProvider:            domain.AuthProvider(dbTrainer.AuthProvider),
		ApprovalStatus:          domain.ApprovalStatus(dbTrainer.ApprovalStatus),
		LastLoginAt:             dbTrainer.LastLoginAt,
		CreatedAt:               dbTrainer.CreatedAt,
		UpdatedAt:               dbTrainer.UpdatedAt,
	}
}

// translateError maps GORM errors onto store sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrContactTaken.Wrap(err)
	default:
		return err
	}
}
