package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/trainerauth/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using Redis.
// Each trainer also owns an index set so every session can be dropped at once.
type SessionRepositoryImpl struct {
	client      *redis.Client
	prefix      string
	indexPrefix string
	ttl         time.Duration
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client, ttl time.Duration) domain.SessionRepository {
	return &SessionRepositoryImpl{
		client:      client,
		prefix:      "session:",
		indexPrefix: "trainer_sessions:",
		ttl:         ttl,
	}
}

func (r *SessionRepositoryImpl) indexKey(trainerID uint) string {
	return r.indexPrefix + strconv.FormatUint(uint64(trainerID), 10)
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	if session.TTL <= 0 {
		session.TTL = r.ttl
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefix+session.ID, data, session.TTL)
	pipe.SAdd(ctx, r.indexKey(session.TrainerID), session.ID)
	pipe.Expire(ctx, r.indexKey(session.TrainerID), session.TTL)
	_, err = pipe.Exec(ctx)
	return err
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.prefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Touch records activity and slides the session expiry forward
func (r *SessionRepositoryImpl) Touch(ctx context.Context, sessionID string, at time.Time) error {
	session, err := r.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	session.LastActivityAt = at.UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.prefix+sessionID, data, session.TTL)
	pipe.Expire(ctx, r.indexKey(session.TrainerID), session.TTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Delete implements domain.SessionRepository
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	session, err := r.FindByID(ctx, sessionID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.prefix+sessionID)
	pipe.SRem(ctx, r.indexKey(session.TrainerID), sessionID)
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteAllForTrainer removes every session listed in the trainer's index
func (r *SessionRepositoryImpl) DeleteAllForTrainer(ctx context.Context, trainerID uint) error {
	index := r.indexKey(trainerID)
	ids, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.prefix+id)
	}
	keys = append(keys, index)
	return r.client.Del(ctx, keys...).Err()
}
