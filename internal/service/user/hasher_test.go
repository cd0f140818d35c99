package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BcryptHasher(t *testing.T) {
	t.Parallel()

	h := BcryptHasher{}

	t.Run("hash password", func(t *testing.T) {
		got, err := h.Hash("password")
		require.NoError(t, err)

		require.Len(t, got, 60, "bcrypt length is 60 letters as far as i know")
		require.Equal(t, "$2a$", got[:4], "bcrypt has should have prefix '$2a$'")
	})

	t.Run("empty password fail", func(t *testing.T) {
		_, err := h.Hash("")

		require.Error(t, err)
	})

	t.Run("compare password ok", func(t *testing.T) {
		hash, err := h.Hash("password")
		require.NoError(t, err)

		err = h.Compare(hash, "password")

		require.NoError(t, err)
	})

	t.Run("fail compare if wrong password", func(t *testing.T) {
		hash, err := h.Hash("password")
		require.NoError(t, err)

		err = h.Compare(hash, "wrong")

		require.Error(t, err)
	})

	t.Run("long passwords differ after 72 bytes", func(t *testing.T) {
		prefix := strings.Repeat("a", 80)
		hash, err := h.Hash(prefix + "1")
		require.NoError(t, err)

		err = h.Compare(hash, prefix+"2")

		require.Error(t, err)
	})
}
