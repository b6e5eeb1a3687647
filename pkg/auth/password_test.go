package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Correct-Horse7")
	require.NoError(t, err)
	assert.NotEqual(t, "Correct-Horse7", hash)

	assert.NoError(t, ComparePassword(hash, "Correct-Horse7"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestHashPassword_EmptyRejected(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "Chantier7ruE", false},
		{"too short", "Ab1", true},
		{"no uppercase", "chantier7rue", true},
		{"no lowercase", "CHANTIER7RUE", true},
		{"no digit", "ChantierRue", true},
		{"common password", "Motdepasse", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPasswordValidationError_GenericMessage(t *testing.T) {
	err := ValidatePassword("short")
	require.Error(t, err)
	// User-facing text must not leak which requirement failed
	assert.Equal(t, "invalid password", err.Error())
}
