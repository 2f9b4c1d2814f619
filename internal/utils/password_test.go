package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_UsesDefaultCost(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.NotContains(t, hash, "correct horse")
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("same-password")
	require.NoError(t, err)
	second, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, CheckPassword("same-password", first))
	assert.True(t, CheckPassword("same-password", second))
}

func TestHashPassword_RejectsOverlongInput(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73))
	assert.Error(t, err, "bcrypt only reads 72 bytes")
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("Şifre-2026!")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"match", "Şifre-2026!", hash, true},
		{"case differs", "şifre-2026!", hash, false},
		{"empty password", "", hash, false},
		{"directory account without local hash", "Şifre-2026!", "", false},
		{"malformed hash", "Şifre-2026!", "$2a$10$short", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPassword(tt.password, tt.hash))
		})
	}
}
