package shared

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDateTimeParsing(t *testing.T) {
	cases := map[string]time.Time{
		"2024-10-12T10:15:30":           time.Date(2024, 10, 12, 10, 15, 30, 0, time.UTC),
		"2024-10-12T10:15:30.123":       time.Date(2024, 10, 12, 10, 15, 30, 123000000, time.UTC),
		"2024-10-12T10:15":              time.Date(2024, 10, 12, 10, 15, 0, 0, time.UTC),
		" 2024-10-12T10:15:30.000000001": time.Date(2024, 10, 12, 10, 15, 30, 1, time.UTC),
	}
	for raw, want := range cases {
		got, err := ParseLocalDateTime(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}
	for _, raw := range []string{"", "yesterday", "2024-13-01T00:00:00", "2024-10-12 10:15:30"} {
		_, err := ParseLocalDateTime(raw)
		assert.Error(t, err, raw)
	}
}

func TestLocalDateTimeJSON(t *testing.T) {
	var payload struct {
		Time LocalDateTime `json:"time"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"time":"2024-10-12T10:15:30.5"}`), &payload))
	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2024-10-12T10:15:30.5"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"time":"not a time"}`), &payload))
	require.NoError(t, json.Unmarshal([]byte(`{"time":null}`), &payload))
	assert.True(t, payload.Time.IsZero())
}

func TestFieldErrors(t *testing.T) {
	err := FieldErrors{"b": "required", "a": "min=10"}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: a: min=10; b: required", err.Error())
	assert.Nil(t, FieldErrorsFrom(nil))
	assert.Equal(t, ErrConflict, FieldErrorsFrom(ErrConflict))
}
