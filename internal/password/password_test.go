package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/menuhub/auth-service/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("s3cret-pass")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	ok, err := password.Verify("s3cret-pass", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("wrong-pass", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	first, err := password.Hash("same-password")
	require.NoError(t, err)
	second, err := password.Hash("same-password")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536$c2FsdA$aGFzaA",
	} {
		_, err := password.Verify("anything", hash)
		require.Error(t, err, "hash %q", hash)
	}
}
