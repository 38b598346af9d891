package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorClassification(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := fmt.Errorf("load: %w", WrapError("trajectory", "Load", ErrInvalidFormat, "persisted collection is malformed", cause))

	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrMalformedState, "a wrapped copy still matches the sentinel")
	assert.False(t, IsValidation(err))
	assert.EqualError(t, err, "load: trajectory.Load: persisted collection is malformed: unexpected EOF")
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(ErrStudentNotFound))
	assert.True(t, IsBusy(ErrInterpreterBusy))
	assert.True(t, IsValidation(ErrInvalidYear))
	assert.True(t, IsValidation(ErrInvalidCandidate))
	assert.True(t, IsExternalService(ErrInterpreterDisabled))
	assert.False(t, IsNotFound(ErrInterpreterFailed))
	assert.NotErrorIs(t, ErrInterpreterBusy, ErrInterpreterFailed)
}
