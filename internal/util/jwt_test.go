package util

import (
	"coder_edu_assessment/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "util-test-secret-at-least-32-characters"

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := BearerToken(tc.header)
		if tc.ok {
			require.NoError(t, err, tc.header)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrMissingToken, tc.header)
		}
	}
}

func TestParseJWTRoundTrip(t *testing.T) {
	tok, err := GenerateJWT(12, model.Teacher, "t@example.com", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.UserID)
	assert.Equal(t, "12", claims.Subject)
	assert.True(t, claims.IsStaff())
}

func TestParseJWTRejects(t *testing.T) {
	t.Run("missing exp", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 1, Role: model.Student}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = ParseJWT(tok, secret)
		assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
	})
	t.Run("missing user", func(t *testing.T) {
		tok, err := GenerateJWT(0, model.Student, "", secret, time.Hour)
		require.NoError(t, err)
		_, err = ParseJWT(tok, secret)
		assert.Error(t, err)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		tok, err := GenerateJWT(1, model.Student, "", secret, time.Hour)
		require.NoError(t, err)
		_, err = ParseJWT(tok, secret, jwt.WithIssuer("coder-edu-auth"))
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, bad)
	}
}
