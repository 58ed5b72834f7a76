package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name  string
		field string
		msg   string
		want  string
	}{
		{"empty input", "user_input", "cannot be empty", "validation error on field user_input: cannot be empty"},
		{"bad history", "history", "item 2 has no user text", "validation error on field history: item 2 has no user text"},
		{"no field", "", "invalid", "validation error on field : invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidationError(tt.field, tt.msg)
			assert.EqualError(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.NotErrorIs(t, err, ErrExternalService)

			wrapped := WrapError(err, "chat")
			var ve *ValidationError
			assert.ErrorAs(t, wrapped, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestExternalError(t *testing.T) {
	cause := errors.New("database is locked")
	err := externalError("failed to reset session", cause)

	assert.EqualError(t, err, "failed to reset session: external service error\ndatabase is locked")
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "context"))

	cause := errors.New("original error")
	err := WrapError(cause, "open session")
	assert.EqualError(t, err, "open session: original error")
	assert.ErrorIs(t, err, cause)
}
