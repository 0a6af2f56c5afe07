package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	s := NewTokenService("0123456789abcdef", time.Hour)
	sid := NewSessionID()
	tok, err := s.Issue(sid)
	require.NoError(t, err)

	got, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, sid, got)
}

func TestParse_Rejects(t *testing.T) {
	s := NewTokenService("0123456789abcdef", time.Hour)
	tok, err := s.Issue("sid-1")
	require.NoError(t, err)

	other := NewTokenService("fedcba9876543210", time.Hour)
	_, err = other.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse(tok[:len(tok)-2] + "xx")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("")
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{SessionID: "sid-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(none)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	s := NewTokenService("0123456789abcdef", time.Minute)
	start := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	tok, err := s.Issue("sid-1")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = s.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
