package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/security"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	token, err := svc.CreateForUser("user-123")
	require.NoError(t, err)

	sub, err := svc.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := security.NewTokenService("secret", -time.Minute)

	token, err := svc.CreateForUser("user-123")
	require.NoError(t, err)

	_, err = svc.Subject(token)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)
	other := security.NewTokenService("different", time.Hour)

	token, err := svc.CreateForUser("user-123")
	require.NoError(t, err)

	_, err = other.Subject(token)
	assert.Error(t, err)
}
