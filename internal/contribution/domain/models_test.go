package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAmount(t *testing.T) {
	const minimum = 30000
	cases := []struct {
		name  string
		gross int64
		rate  int64
		want  int64
	}{
		{"below floor is raised", 1000000, 275, 30000},
		{"above floor", 2000000, 275, 55000},
		{"rounds half up", 1234567, 275, 33951},
		{"rounds down below half", 1234410, 275, 33946},
		{"custom rate", 5000000, 300, 150000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeAmount(tc.gross, tc.rate, minimum))
		})
	}
}

func TestReverseSources(t *testing.T) {
	assert.Equal(t, []Status{StatusCompleted}, ReverseSources())

	sources := ReverseSources()
	sources[0] = StatusPending
	assert.Equal(t, []Status{StatusCompleted}, ReverseSources())
}
