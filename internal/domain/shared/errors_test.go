package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	e := NewDomainError("scoring", "Score", ErrValueOutOfRange, "quiz average above 100")
	assert.Equal(t, "scoring.Score: quiz average above 100", e.Error())

	cause := errors.New("raw parse failure")
	wrapped := WrapError("population", "Ingest", ErrValidation, "record rejected", cause)
	assert.Equal(t, "population.Ingest: record rejected: raw parse failure", wrapped.Error())
}

func TestDomainError_MatchesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("fetch: %w", ErrTimeout)
	e := WrapError("source", "Fetch", ErrExternalService, "warehouse fetch failed", cause)

	// Both the declared kind and the wrapped cause chain match.
	assert.ErrorIs(t, e, ErrExternalService)
	assert.ErrorIs(t, e, ErrTimeout)
	assert.NotErrorIs(t, e, ErrNotFound)
}

func TestDomainError_UnwrapPrefersCause(t *testing.T) {
	cause := errors.New("boom")
	withCause := WrapError("population", "Ingest", ErrValidation, "bad record", cause)
	assert.Equal(t, cause, errors.Unwrap(withCause))

	withoutCause := NewDomainError("population", "Get", ErrNotFound, "missing")
	assert.Equal(t, ErrNotFound, errors.Unwrap(withoutCause))
}

func TestSentinelErrors(t *testing.T) {
	assert.ErrorIs(t, ErrStudentNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrEmptyBatch, ErrEmptyValue)
	assert.ErrorIs(t, ErrEmptyStudentID, ErrInvalidID)
	assert.ErrorIs(t, ErrInvalidProfile, ErrInvalidInput)
	assert.ErrorIs(t, ErrInvalidFeatureRange, ErrValueOutOfRange)
	assert.ErrorIs(t, ErrSourceUnavailable, ErrServiceUnavailable)
	assert.ErrorIs(t, ErrSourceTimeout, ErrTimeout)
}

func TestErrorClassifiers(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		assert.True(t, IsNotFound(ErrStudentNotFound))
		assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrStudentNotFound)))
		assert.False(t, IsNotFound(ErrEmptyBatch))
	})

	t.Run("validation", func(t *testing.T) {
		assert.True(t, IsValidation(ErrEmptyBatch))
		assert.True(t, IsValidation(ErrEmptyStudentID))
		assert.True(t, IsValidation(ErrInvalidFeatureRange))
		assert.True(t, IsValidation(WrapError("d", "op", ErrValidation, "m", nil)))
		assert.False(t, IsValidation(ErrStudentNotFound))
	})

	t.Run("external service", func(t *testing.T) {
		assert.True(t, IsExternalService(ErrSourceUnavailable))
		assert.True(t, IsExternalService(ErrSourceTimeout))
		assert.False(t, IsExternalService(ErrStudentNotFound))
		assert.False(t, IsExternalService(nil))
	})
}
