package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/sharelink/internal/common"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	tok, err := GenerateToken("dr-9", "Dr. Chen", secret, time.Minute)
	require.NoError(t, err)

	id, name, err := ProviderFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "dr-9", id)
	assert.Equal(t, "Dr. Chen", name)
}

func TestProviderFromToken_WrongSecret(t *testing.T) {
	tok, err := GenerateToken("dr-9", "Dr. Chen", []byte("right"), time.Minute)
	require.NoError(t, err)

	_, _, err = ProviderFromToken(tok, []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestProviderFromToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := GenerateToken("dr-9", "Dr. Chen", secret, -time.Minute)
	require.NoError(t, err)

	_, _, err = ProviderFromToken(tok, secret)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestProviderFromToken_Garbage(t *testing.T) {
	_, _, err := ProviderFromToken("not-a-jwt", []byte("s"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
