package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "300.00", Format(30000))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-12.30", Format(-1230))
}
