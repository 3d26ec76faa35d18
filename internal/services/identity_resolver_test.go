package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/trainerauth/domain"
)

func TestDecideIdentity(t *testing.T) {
	anchor := &domain.Trainer{ID: 1, ApprovalStatus: domain.ApprovalNone}
	free := &domain.Trainer{ID: 2, ApprovalStatus: domain.ApprovalNone}
	applied := &domain.Trainer{ID: 3, ApprovalStatus: domain.ApprovalPending}
	approved := &domain.Trainer{ID: 4, ApprovalStatus: domain.ApprovalApproved}

	tests := []struct {
		name       string
		anchor     *domain.Trainer
		phoneOwner *domain.Trainer
		want       domain.ResolveDecision
	}{
		{name: "nothing known", want: domain.DecisionCreateNew},
		{name: "anchor only", anchor: anchor, want: domain.DecisionUseExisting},
		{name: "anchor already holds phone", anchor: anchor, phoneOwner: anchor, want: domain.DecisionUseExisting},
		{name: "phone held by identity without milestone", anchor: anchor, phoneOwner: free, want: domain.DecisionTransferPhone},
		{name: "phone held by applicant", anchor: anchor, phoneOwner: applied, want: domain.DecisionRejectConflict},
		{name: "phone held by approved trainer", anchor: anchor, phoneOwner: approved, want: domain.DecisionRejectConflict},
		{name: "no anchor, phone free to move", phoneOwner: free, want: domain.DecisionTransferPhone},
		{name: "no anchor, phone committed", phoneOwner: applied, want: domain.DecisionRejectConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideIdentity(tt.anchor, tt.phoneOwner))
		})
	}
}

func seedTrainer(t *testing.T, env *testEnv, trainer *domain.Trainer) *domain.Trainer {
	t.Helper()
	if trainer.AuthProvider == "" {
		trainer.AuthProvider = domain.AuthProviderPassword
	}
	if trainer.ApprovalStatus == "" {
		trainer.ApprovalStatus = domain.ApprovalNone
	}
	require.NoError(t, env.trainers.Create(context.Background(), trainer))
	return trainer
}

func TestIdentityResolver_CreateAndReuse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:    "coach@example.com",
		Phone:    "+15551112222",
		Provider: domain.AuthProviderPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionCreateNew, decision)
	assert.NotZero(t, created.ID)
	assert.False(t, created.IsEmailVerified)

	again, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email: "coach@example.com",
		Phone: "+15551112222",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUseExisting, decision)
	assert.Equal(t, created.ID, again.ID)

	// phone-only sign-in resolves to the phone holder
	byPhone, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{Phone: "+15551112222"})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUseExisting, decision)
	assert.Equal(t, created.ID, byPhone.ID)
}

func TestIdentityResolver_PhoneTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "+15551112222"

	holder := seedTrainer(t, env, &domain.Trainer{Phone: strPtr(phone), IsPhoneVerified: true, AuthProvider: domain.AuthProviderPhoneOTP})
	anchor := seedTrainer(t, env, &domain.Trainer{Email: strPtr("b@x.com"), IsEmailVerified: true})

	holderSession, err := env.rotator.StartSession(ctx, holder, domain.ClientMeta{})
	require.NoError(t, err)

	resolved, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{Email: "b@x.com", Phone: phone})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionTransferPhone, decision)
	assert.Equal(t, anchor.ID, resolved.ID)
	assert.Equal(t, phone, resolved.PhoneValue())
	assert.False(t, resolved.IsPhoneVerified)

	previous, err := env.trainers.FindByID(ctx, holder.ID)
	require.NoError(t, err)
	assert.Nil(t, previous.Phone)
	assert.False(t, previous.IsPhoneVerified)

	// the identity that lost the phone is signed out everywhere
	_, err = env.rotator.Refresh(ctx, holderSession.Tokens.RefreshToken, holderSession.SessionID, domain.ClientMeta{})
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
	assert.Len(t, env.audit.Events(domain.PhoneTransferredEvent), 1)
}

func TestIdentityResolver_PhoneTransferCreatesAnchor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "+15551112222"

	holder := seedTrainer(t, env, &domain.Trainer{Phone: strPtr(phone)})

	resolved, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:           "new@x.com",
		Phone:           phone,
		ExternalSubject: "google-sub-1",
		EmailVerified:   true,
		Provider:        domain.AuthProviderOAuthNative,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionTransferPhone, decision)
	assert.NotEqual(t, holder.ID, resolved.ID)
	assert.Equal(t, phone, resolved.PhoneValue())
	assert.True(t, resolved.IsEmailVerified)
	assert.Equal(t, domain.AuthProviderOAuthNative, resolved.AuthProvider)
}

func TestIdentityResolver_RejectsCommittedPhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "+15551112222"

	holder := seedTrainer(t, env, &domain.Trainer{Phone: strPtr(phone), ApprovalStatus: domain.ApprovalApproved})
	seedTrainer(t, env, &domain.Trainer{Email: strPtr("b@x.com")})

	_, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{Email: "b@x.com", Phone: phone})
	require.ErrorIs(t, err, domain.ErrPhoneUnavailable)
	assert.Equal(t, domain.DecisionRejectConflict, decision)
	// the error must not identify the holder
	assert.NotContains(t, err.Error(), "approved")

	unchanged, err := env.trainers.FindByID(ctx, holder.ID)
	require.NoError(t, err)
	assert.Equal(t, phone, unchanged.PhoneValue())
}

func TestIdentityResolver_ConcurrentTransferIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const phone = "+15551112222"

	seedTrainer(t, env, &domain.Trainer{Phone: strPtr(phone)})
	seedTrainer(t, env, &domain.Trainer{Email: strPtr("b@x.com")})
	seedTrainer(t, env, &domain.Trainer{Email: strPtr("c@x.com")})

	var wg sync.WaitGroup
	for _, email := range []string{"b@x.com", "c@x.com"} {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			// the loser either sees the phone gone from its source or a new holder
			_, _, _ = env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{Email: email, Phone: phone})
		}(email)
	}
	wg.Wait()

	var holders int64
	require.NoError(t, env.db.Table("trainers").Where("phone = ?", phone).Count(&holders).Error)
	assert.Equal(t, int64(1), holders)
}

func TestIdentityResolver_LinksExternalSubject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	existing := seedTrainer(t, env, &domain.Trainer{Email: strPtr("coach@example.com")})

	resolved, decision, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:           "coach@example.com",
		ExternalSubject: "google-sub-9",
		EmailVerified:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUseExisting, decision)
	assert.Equal(t, existing.ID, resolved.ID)
	require.NotNil(t, resolved.ExternalIdentitySubject)
	assert.Equal(t, "google-sub-9", *resolved.ExternalIdentitySubject)
	assert.True(t, resolved.IsEmailVerified)

	// subject outranks email
	bySubject, _, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{ExternalSubject: "google-sub-9"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, bySubject.ID)

	_, _, err = env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:           "coach@example.com",
		ExternalSubject: "google-sub-other",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestIdentityResolver_KeepsVerifiedPhone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	existing := seedTrainer(t, env, &domain.Trainer{
		Email:           strPtr("coach@example.com"),
		IsEmailVerified: true,
		Phone:           strPtr("+15551112222"),
		IsPhoneVerified: true,
	})

	_, _, err := env.resolver.ResolveOrCreate(ctx, domain.ResolveRequest{
		Email:           "coach@example.com",
		Phone:           "+15553334444",
		ExternalSubject: "google-sub-3",
		EmailVerified:   true,
	})
	require.ErrorIs(t, err, domain.ErrPhoneUnavailable)

	after, err := env.trainers.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15551112222", after.PhoneValue())
	assert.True(t, after.IsPhoneVerified)
	assert.Nil(t, after.ExternalIdentitySubject)
}
