package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/retry"
	"go.uber.org/zap"
)

// SessionRevoker ends every session of a trainer. The token rotator satisfies it.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, trainerID uint) error
}

// DecideIdentity chooses how a sign-in maps onto existing identities.
// anchor is the identity found by external subject or email; phoneOwner is
// whoever currently holds the presented phone.
func DecideIdentity(anchor, phoneOwner *domain.Trainer) domain.ResolveDecision {
	if phoneOwner != nil && (anchor == nil || phoneOwner.ID != anchor.ID) {
		if phoneOwner.ApprovalStatus.HasOnboardingMilestone() {
			return domain.DecisionRejectConflict
		}
		return domain.DecisionTransferPhone
	}
	if anchor != nil {
		return domain.DecisionUseExisting
	}
	return domain.DecisionCreateNew
}

// IdentityResolverImpl implements domain.IdentityResolver
type IdentityResolverImpl struct {
	trainers domain.TrainerRepository
	revoker  SessionRevoker
	audit    domain.AuditLogger
	retry    retry.Policy
	logger   *zap.Logger
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(trainers domain.TrainerRepository, revoker SessionRevoker, audit domain.AuditLogger, logger *zap.Logger) *IdentityResolverImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityResolverImpl{
		trainers: trainers,
		revoker:  revoker,
		audit:    audit,
		retry:    retry.DefaultPolicy(),
		logger:   logger,
	}
}

// WithRetryPolicy overrides the store retry policy
func (r *IdentityResolverImpl) WithRetryPolicy(p retry.Policy) *IdentityResolverImpl {
	r.retry = p
	return r
}

var _ domain.IdentityResolver = (*IdentityResolverImpl)(nil)

// lookup returns nil without error when nothing matches or the key is empty
func (r *IdentityResolverImpl) lookup(ctx context.Context, key string, find func(context.Context, string) (*domain.Trainer, error)) (*domain.Trainer, error) {
	if key == "" {
		return nil, nil
	}
	t, err := fetch(ctx, r.retry, func(ctx context.Context) (*domain.Trainer, error) {
		return find(ctx, key)
	})
	if isNotFound(err) {
		return nil, nil
	}
	return t, err
}

// ResolveOrCreate pins the presented channels to one trainer identity.
// An external subject outranks email when both match different identities.
func (r *IdentityResolverImpl) ResolveOrCreate(ctx context.Context, req domain.ResolveRequest) (*domain.Trainer, domain.ResolveDecision, error) {
	bySubject, err := r.lookup(ctx, req.ExternalSubject, r.trainers.FindByExternalSubject)
	if err != nil {
		return nil, "", err
	}
	byEmail, err := r.lookup(ctx, req.Email, r.trainers.FindByEmail)
	if err != nil {
		return nil, "", err
	}
	phoneOwner, err := r.lookup(ctx, req.Phone, r.trainers.FindByPhone)
	if err != nil {
		return nil, "", err
	}

	anchor := bySubject
	if anchor == nil {
		anchor = byEmail
	}
	// phone-only sign-in: the phone holder is the identity
	if req.Email == "" && req.ExternalSubject == "" {
		anchor = phoneOwner
	}

	decision := DecideIdentity(anchor, phoneOwner)
	switch decision {
	case domain.DecisionRejectConflict:
		r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PhoneConflictEvent, phoneOwner.ID).
			WithMetadata("approval_status", string(phoneOwner.ApprovalStatus)).
			WithError(domain.ErrPhoneUnavailable))
		return nil, decision, domain.ErrPhoneUnavailable

	case domain.DecisionTransferPhone:
		trainer, err := r.transferPhone(ctx, anchor, byEmail, phoneOwner, req)
		if err != nil {
			return nil, decision, err
		}
		return trainer, decision, nil

	case domain.DecisionUseExisting:
		if err := r.attach(ctx, anchor, byEmail, req); err != nil {
			return nil, decision, err
		}
		return anchor, decision, nil

	default:
		trainer, err := r.create(ctx, req, req.Phone)
		if err != nil {
			return nil, decision, err
		}
		return trainer, decision, nil
	}
}

func (r *IdentityResolverImpl) transferPhone(ctx context.Context, anchor, byEmail, phoneOwner *domain.Trainer, req domain.ResolveRequest) (*domain.Trainer, error) {
	if anchor == nil {
		created, err := r.create(ctx, req, "")
		if err != nil {
			return nil, err
		}
		anchor = created
	} else if err := r.attach(ctx, anchor, byEmail, domain.ResolveRequest{
		Email:           req.Email,
		ExternalSubject: req.ExternalSubject,
		EmailVerified:   req.EmailVerified,
		PasswordHash:    req.PasswordHash,
	}); err != nil {
		return nil, err
	}

	if err := r.trainers.TransferPhone(ctx, phoneOwner.ID, anchor.ID, req.Phone); err != nil {
		return nil, classify(r.retry, err)
	}

	// the previous holder must not keep acting with a phone it no longer owns
	if r.revoker != nil {
		if err := r.revoker.LogoutAll(ctx, phoneOwner.ID); err != nil {
			r.logger.Warn("failed to revoke sessions of previous phone holder",
				zap.Uint("trainer_id", phoneOwner.ID), zap.Error(err))
		}
	}

	r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.PhoneTransferredEvent, anchor.ID).
		WithMetadata("from_trainer_id", fmt.Sprint(phoneOwner.ID)))

	return fetch(ctx, r.retry, func(ctx context.Context) (*domain.Trainer, error) {
		return r.trainers.FindByID(ctx, anchor.ID)
	})
}

// attach merges newly presented channels into an existing identity
func (r *IdentityResolverImpl) attach(ctx context.Context, anchor, byEmail *domain.Trainer, req domain.ResolveRequest) error {
	// a verified phone is only ever moved by TransferPhone
	if req.Phone != "" && anchor.PhoneValue() != req.Phone && anchor.IsPhoneVerified {
		return domain.ErrPhoneUnavailable
	}

	changed := false
	if req.ExternalSubject != "" {
		switch {
		case anchor.ExternalIdentitySubject == nil:
			subject := req.ExternalSubject
			anchor.ExternalIdentitySubject = &subject
			changed = true
			r.audit.LogEvent(ctx, domain.NewAuditEvent(domain.ExternalLinkedEvent, anchor.ID))
		case *anchor.ExternalIdentitySubject != req.ExternalSubject:
			return domain.ErrEmailTaken
		}
	}

	revoke := false
	if req.Email != "" && anchor.Email == nil && byEmail == nil {
		email := req.Email
		anchor.Email = &email
		anchor.IsEmailVerified = req.EmailVerified
		changed = true
	} else if req.EmailVerified && !anchor.IsEmailVerified && anchor.EmailValue() == req.Email {
		anchor.IsEmailVerified = true
		changed = true
		// whoever set the password never proved the mailbox
		if anchor.HasPassword() && req.PasswordHash == "" {
			anchor.PasswordHash = nil
			revoke = true
		}
	}

	if req.Phone != "" && anchor.PhoneValue() != req.Phone {
		phone := req.Phone
		anchor.Phone = &phone
		anchor.IsPhoneVerified = false
		changed = true
	}

	if req.PasswordHash != "" {
		hash := req.PasswordHash
		anchor.PasswordHash = &hash
		changed = true
	}

	if !changed {
		return nil
	}
	if err := r.trainers.Update(ctx, anchor); err != nil {
		if errors.Is(err, domain.ErrContactTaken) {
			return domain.ErrContactTaken
		}
		return classify(r.retry, err)
	}

	if revoke {
		r.logger.Info("dropped unproven password on email verification", zap.Uint("trainer_id", anchor.ID))
		if r.revoker != nil {
			if err := r.revoker.LogoutAll(ctx, anchor.ID); err != nil {
				r.logger.Warn("failed to revoke sessions after dropping password",
					zap.Uint("trainer_id", anchor.ID), zap.Error(err))
			}
		}
	}
	return nil
}

func (r *IdentityResolverImpl) create(ctx context.Context, req domain.ResolveRequest, phone string) (*domain.Trainer, error) {
	provider := req.Provider
	if provider == "" {
		provider = domain.AuthProviderPassword
	}
	trainer := &domain.Trainer{
		AuthProvider:    provider,
		ApprovalStatus:  domain.ApprovalNone,
		IsEmailVerified: req.EmailVerified && req.Email != "",
	}
	if req.Email != "" {
		email := req.Email
		trainer.Email = &email
	}
	if phone != "" {
		trainer.Phone = &phone
	}
	if req.ExternalSubject != "" {
		subject := req.ExternalSubject
		trainer.ExternalIdentitySubject = &subject
	}
	if req.PasswordHash != "" {
		hash := req.PasswordHash
		trainer.PasswordHash = &hash
	}

	if err := r.trainers.Create(ctx, trainer); err != nil {
		// a concurrent sign-in claimed one of the channels first
		if errors.Is(err, domain.ErrContactTaken) {
			return nil, domain.ErrContactTaken
		}
		return nil, classify(r.retry, err)
	}
	return trainer, nil
}
