// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/account"
)

func TestHashPassword(t *testing.T) {
	hasher := account.NewArgon2idHasher()

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("password1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("password2")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, account.ErrEmptyPassword)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := account.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid hash format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "not-a-valid-hash")
		assert.Error(t, err)
	})

	t.Run("wrong algorithm returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported hash algorithm")
	})

	t.Run("invalid version format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA")
		assert.Error(t, err)
	})

	t.Run("invalid salt encoding returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA")
		assert.Error(t, err)
	})

	t.Run("dummy hash never verifies", func(t *testing.T) {
		// The timing-defense hash used for nonexistent users must not match
		// any real password, including the empty one.
		const dummy = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		for _, pw := range []string{"", "password", "A"} {
			ok, err := hasher.Verify(pw, dummy)
			require.NoError(t, err)
			assert.False(t, ok)
		}
	})
}
