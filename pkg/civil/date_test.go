package civil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalAcceptsBothLayouts(t *testing.T) {
	var payload struct {
		A Date  `json:"a"`
		B *Date `json:"b"`
		C Date  `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2025-03-14","b":"2025-03-15T22:30:00+03:00","c":null}`), &payload))
	assert.Equal(t, New(2025, time.March, 14), payload.A)
	require.NotNil(t, payload.B)
	assert.Equal(t, New(2025, time.March, 15), *payload.B)
	assert.True(t, payload.C.IsZero())

	err := json.Unmarshal([]byte(`{"a":"14/03/2025"}`), &payload)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestMarshal(t *testing.T) {
	b, err := json.Marshal(New(2025, time.January, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-01-02"`, string(b))

	b, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestFirstOfMonthAndTimePtr(t *testing.T) {
	at := time.Date(2025, time.July, 19, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), FirstOfMonth(at))

	assert.Nil(t, TimePtr(nil))
	assert.Nil(t, TimePtr(&Date{}))
	d := New(2025, time.July, 1)
	require.NotNil(t, TimePtr(&d))
}
