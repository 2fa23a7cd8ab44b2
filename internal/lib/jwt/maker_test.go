package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 0)

	tests := []struct {
		name  string
		id    string
		email string
		role  string
	}{
		{name: "superadmin", id: "a1", email: "admin@easytomanage.xyz", role: "superadmin"},
		{name: "support", id: "a2", email: "support@easytomanage.xyz", role: "support"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.id, tt.email, tt.role)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.id, claims.AdminID)
			assert.Equal(t, tt.id, claims.Subject)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.role, claims.Role)
			assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.ExpiresAt.Time, 2*time.Second)
		})
	}
}

func TestMaker_ParseInvalid(t *testing.T) {
	maker := NewJWTMaker("secret", time.Hour)
	valid, err := maker.GenerateToken("a1", "admin@example.com", "admin")
	require.NoError(t, err)

	expired, err := NewJWTMaker("secret", -time.Hour).GenerateToken("a1", "admin@example.com", "admin")
	require.NoError(t, err)

	foreign, err := NewJWTMaker("other-secret", time.Hour).GenerateToken("a1", "admin@example.com", "admin")
	require.NoError(t, err)

	noneAlg, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{AdminID: "a1"}).
		SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "malformed", token: "invalid.token.here"},
		{name: "expired", token: expired},
		{name: "wrong secret", token: foreign},
		{name: "tampered", token: valid + "x"},
		{name: "alg none", token: noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}
