package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustdrive/stagelink/internal/token"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	issuer, err := token.NewIssuer("staff-secret", 12*time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Sign("42")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	subject, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", subject)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	staff, err := token.NewIssuer("staff-secret", time.Hour)
	require.NoError(t, err)
	parcel, err := token.NewIssuer("parcel-secret", time.Hour)
	require.NoError(t, err)

	raw, err := staff.Sign("42")
	require.NoError(t, err)

	_, err = parcel.Verify(raw)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, err := token.NewIssuer("secret", time.Millisecond)
	require.NoError(t, err)

	raw, err := issuer.Sign("JKH 65T P3")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = issuer.Verify(raw)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, err := token.NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	for _, raw := range []string{"", "not.a.token", "abc"} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, token.ErrInvalidToken, "input %q", raw)
	}
}

func TestNewIssuerValidation(t *testing.T) {
	_, err := token.NewIssuer("", time.Hour)
	assert.Error(t, err)

	_, err = token.NewIssuer("secret", 0)
	assert.Error(t, err)
}
