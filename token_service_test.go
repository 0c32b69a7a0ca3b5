package membership_test

import (
	"testing"
	"time"

	membership "github.com/civicmesh/membership"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	signingKey := []byte("test-signing-key")
	svc := membership.NewTokenService(signingKey, time.Hour, "memberd", testLogger{})

	memberID := uuid.New()
	token, err := svc.Generate(memberID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, memberID.String(), claims.MemberID())
	assert.Equal(t, "memberd", claims.Issuer)
	assert.True(t, claims.Expires().After(time.Now()))
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := membership.NewTokenService([]byte("test-signing-key"), time.Millisecond, "memberd", testLogger{})

	token, err := svc.Generate(uuid.New())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, membership.ErrInvalidOrExpiredToken)
}

func TestTokenServiceRejectsWrongKey(t *testing.T) {
	issuer := membership.NewTokenService([]byte("key-one"), time.Hour, "memberd", testLogger{})
	verifier := membership.NewTokenService([]byte("key-two"), time.Hour, "memberd", testLogger{})

	token, err := issuer.Generate(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, membership.ErrInvalidOrExpiredToken)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	svc := membership.NewTokenService([]byte("test-signing-key"), time.Hour, "memberd", testLogger{})

	for _, raw := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := svc.Validate(raw)
		assert.ErrorIs(t, err, membership.ErrInvalidOrExpiredToken)
	}
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	issuer := membership.NewTokenService([]byte("test-signing-key"), time.Hour, "other-service", testLogger{})
	verifier := membership.NewTokenService([]byte("test-signing-key"), time.Hour, "memberd", testLogger{})

	token, err := issuer.Generate(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, membership.ErrInvalidOrExpiredToken)
}
