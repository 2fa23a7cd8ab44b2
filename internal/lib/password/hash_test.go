package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		plain string
	}{
		{name: "seed admin password", plain: "admin123"},
		{name: "special chars", plain: "p@ssw0rd!#$%^&*()"},
		{name: "unicode", plain: "пароль-дня"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := Hash(tt.plain)
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.plain, hash)
			assert.NoError(t, Compare(hash, tt.plain))
		})
	}
}

func TestCompare(t *testing.T) {
	hash, err := Hash("correct_password")
	require.NoError(t, err)

	tests := []struct {
		name    string
		hash    string
		plain   string
		wantErr error
		anyErr  bool
	}{
		{name: "match", hash: hash, plain: "correct_password"},
		{name: "wrong password", hash: hash, plain: "wrong_password", wantErr: ErrMismatch},
		{name: "empty password", hash: hash, plain: "", wantErr: ErrMismatch},
		{name: "plaintext stored instead of hash", hash: "correct_password", plain: "correct_password", anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.hash, tt.plain)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrMismatch)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestHash_Salted(t *testing.T) {
	first, err := Hash("same")
	require.NoError(t, err)
	second, err := Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
