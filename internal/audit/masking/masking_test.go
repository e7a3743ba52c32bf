package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("1234"))
	assert.Equal(t, "****5678", MaskSecret("12345678"))
}

func TestSensitive(t *testing.T) {
	assert.True(t, Sensitive("national_id"))
	assert.True(t, Sensitive(" Bank_Account_Number "))
	assert.False(t, Sensitive("status"))
}

func TestMaskValue(t *testing.T) {
	s := "0011223344"
	var nilString *string

	assert.Nil(t, MaskValue(nil))
	assert.Nil(t, MaskValue(nilString))
	assert.Equal(t, "****3344", MaskValue(&s))
	assert.Equal(t, "****6789", MaskValue(123456789))
}
