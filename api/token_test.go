package api

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/change-order-api/models"
)

var rita = models.Identity{Username: "rita", Role: models.RoleRemodelManager}

func TestTokenService_IssueVerify(t *testing.T) {
	ts := NewTokenService("secret", time.Hour)

	token, err := ts.Issue(rita)
	require.NoError(t, err)

	for _, credential := range []string{token, "Bearer " + token, "bearer  " + token} {
		got, err := ts.Verify(context.Background(), credential)
		assert.NoError(t, err)
		assert.Equal(t, rita, got)
	}
}

func TestTokenService_VerifyRejects(t *testing.T) {
	ts := NewTokenService("secret", time.Hour)
	other := NewTokenService("other", time.Hour)

	foreign, err := other.Issue(rita)
	require.NoError(t, err)

	expired := NewTokenService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue(rita)
	require.NoError(t, err)

	badRole, err := ts.Issue(models.Identity{Username: "mallory", Role: "Janitor"})
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "rita",
		"role": string(models.RoleRemodelManager),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
	}{
		{"empty", ""},
		{"bearer only", "Bearer "},
		{"garbage", "asdfasdf"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"unknown role", badRole},
		{"no expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Verify(context.Background(), tt.credential)
			assert.ErrorIs(t, err, models.ErrAuthRejected)
		})
	}
}

func TestTokenService_NoSecret(t *testing.T) {
	ts := NewTokenService("", time.Hour)

	_, err := ts.Issue(rita)
	assert.Error(t, err)

	_, err = ts.Verify(context.Background(), "anything")
	assert.ErrorIs(t, err, models.ErrAuthRejected)
}
