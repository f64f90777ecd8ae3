package auth

import (
	"testing"
	"time"

	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 24*time.Hour)
	token, err := issuer.Issue(models.TokenRequest{Email: " Student@Example.com", Name: "Student"})
	require.NoError(t, err)

	claims, err := NewVerifier(testSecret).Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.Equal(t, "Student", claims.Name)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestIssueRequiresEmail(t *testing.T) {
	_, err := NewTokenIssuer(testSecret, time.Hour).Issue(models.TokenRequest{})

	var validationErr *qerrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestVerifyRejections(t *testing.T) {
	valid, err := NewTokenIssuer(testSecret, time.Hour).Issue(models.TokenRequest{Email: "a@example.com"})
	require.NoError(t, err)

	otherSecret, err := NewTokenIssuer("another-secret", time.Hour).Issue(models.TokenRequest{Email: "a@example.com"})
	require.NoError(t, err)

	expiredIssuer := NewTokenIssuer(testSecret, time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := expiredIssuer.Issue(models.TokenRequest{Email: "a@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing header", "", qerrors.UnauthenticatedError},
		{"wrong scheme", "Basic " + valid, qerrors.InvalidTokenError},
		{"empty token", "Bearer ", qerrors.InvalidTokenError},
		{"garbage token", "Bearer not-a-token", qerrors.InvalidTokenError},
		{"wrong secret", "Bearer " + otherSecret, qerrors.InvalidTokenError},
		{"expired", "Bearer " + expired, qerrors.InvalidTokenError},
	}

	verifier := NewVerifier(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorize(t *testing.T) {
	claims := &Claims{Email: "a@example.com"}

	assert.NoError(t, Authorize(claims, "A@Example.com"))
	assert.ErrorIs(t, Authorize(claims, "b@example.com"), qerrors.ForbiddenError)
	assert.ErrorIs(t, Authorize(claims, ""), qerrors.ForbiddenError)
	assert.ErrorIs(t, Authorize(nil, "a@example.com"), qerrors.UnauthenticatedError)
}
