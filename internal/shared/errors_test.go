package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	cause := errors.New("short read")
	err := Wrap(ErrData, "cryptox: decrypt", cause)
	assert.ErrorIs(t, err, ErrData)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cryptox: decrypt: unable to process secure data: short read", err.Error())

	bare := Wrap(ErrConfig, "keys: load", nil)
	assert.ErrorIs(t, bare, ErrConfig)
	assert.Equal(t, "keys: load: security configuration error", bare.Error())
}

func TestAuthReason(t *testing.T) {
	assert.Equal(t, ReasonTokenExpired, AuthReason(ErrTokenExpired))
	assert.Equal(t, ReasonTokenMissing, AuthReason(Wrap(ErrTokenMissing, "gate", nil)))
	assert.Equal(t, "", AuthReason(ErrForbidden))
	assert.ErrorIs(t, ErrTokenInvalid, ErrUnauthorized)
	assert.NotErrorIs(t, ErrTokenInvalid, ErrTokenExpired)
}
