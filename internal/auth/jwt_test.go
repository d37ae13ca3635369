package auth

import (
	"testing"
	"time"

	"refpay/config"
	"refpay/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret: "unit-test-secret",
		Expiry: time.Hour,
		Issuer: "refpay-test",
	}
}

// TestGenerateAndParseToken_Roundtrip.
func TestGenerateAndParseToken_Roundtrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, 42, "payouts@acme.test", domain.RolePartner)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.PartnerID)
	assert.Equal(t, "payouts@acme.test", claims.Email)
	assert.Equal(t, domain.RolePartner, claims.Role)
	assert.Equal(t, "refpay-test", claims.Issuer)
}

// TestParseToken_WrongSecretRejected.
func TestParseToken_WrongSecretRejected(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, 1, "a@b.test", domain.RoleAdmin)
	require.NoError(t, err)

	other := testJWTConfig()
	other.Secret = "a different secret"
	_, err = ParseToken(other, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestParseToken_ExpiredRejected.
func TestParseToken_ExpiredRejected(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Expiry = -time.Minute
	token, err := GenerateToken(cfg, 1, "a@b.test", domain.RolePartner)
	require.NoError(t, err)

	_, err = ParseToken(testJWTConfig(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestParseToken_GarbageRejected.
func TestParseToken_GarbageRejected(t *testing.T) {
	_, err := ParseToken(testJWTConfig(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
