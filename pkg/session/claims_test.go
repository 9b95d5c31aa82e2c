package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	t.Run("jwt", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte("server-only-secret"))
		require.NoError(t, err)

		info, err := Inspect(signed)
		require.NoError(t, err)
		assert.Equal(t, "alice", info.Subject)
		assert.True(t, info.ExpiresAt.Equal(now.Add(time.Hour)))
		assert.True(t, info.IssuedAt.Equal(now))
		assert.False(t, info.Expired(now))
		assert.True(t, info.Expired(now.Add(2*time.Hour)))
	})

	t.Run("opaque", func(t *testing.T) {
		_, err := Inspect("abc123")
		assert.ErrorIs(t, err, ErrOpaqueToken)
	})

	t.Run("no expiry never expires", func(t *testing.T) {
		assert.False(t, Info{}.Expired(now))
	})
}
