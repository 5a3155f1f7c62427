package todo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tasklist/pkg/auth"
)

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, `"InProgress"`, string(data))

	tests := []struct {
		input string
		want  Status
	}{
		{`"ToDo"`, StatusToDo},
		{`"inprogress"`, StatusInProgress},
		{`"Resolved"`, StatusResolved},
		{`0`, StatusToDo},
		{`2`, StatusResolved},
		{`"1"`, StatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var s Status
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			assert.Equal(t, tt.want, s)
		})
	}

	for _, bad := range []string{`"Done"`, `3`, `-1`, `true`} {
		var s Status
		assert.Error(t, json.Unmarshal([]byte(bad), &s), bad)
	}

	_, err = json.Marshal(Status(7))
	assert.Error(t, err)
}

func TestInput_Validate(t *testing.T) {
	resolved := StatusResolved
	invalid := Status(9)

	tests := []struct {
		name    string
		input   Input
		wantErr bool
	}{
		{"valid", Input{Title: "t", Description: "d"}, false},
		{"valid with status", Input{Title: "t", Description: "d", Status: &resolved}, false},
		{"missing title", Input{Description: "d"}, true},
		{"blank title", Input{Title: "  ", Description: "d"}, true},
		{"missing description", Input{Title: "t"}, true},
		{"bad status", Input{Title: "t", Description: "d", Status: &invalid}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToView(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	view := ToView(&Todo{
		ID:          "t-1",
		OwnerID:     "u-1",
		Title:       "Buy milk",
		Description: "2 liters",
		Status:      StatusInProgress,
		Created:     created,
		Updated:     created,
	})

	data, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "t-1", decoded["id"])
	assert.Equal(t, "u-1", decoded["userId"])
	assert.Equal(t, "InProgress", decoded["status"])
	assert.Equal(t, false, decoded["archived"])
	assert.Equal(t, "2024-03-01T08:00:00Z", decoded["created"])

	assert.Empty(t, ToViews(nil))
	assert.NotNil(t, ToViews(nil))
}

func TestLaterOf(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now, LaterOf(now, now.Add(-time.Second)))
	assert.Equal(t, now.Add(time.Second), LaterOf(now, now.Add(time.Second)))
}
