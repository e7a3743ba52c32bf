package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	docs, err := Normalize([]Document{
		{Name: " referral letter ", URI: "s3://sha-docs/ref/1.pdf"},
		{Name: "referral letter", URI: "s3://sha-docs/ref/1.pdf"},
		{Name: "lab results", URI: "https://files.example.com/lab/7"},
	})
	require.NoError(t, err)
	assert.Equal(t, Documents{
		{Name: "referral letter", URI: "s3://sha-docs/ref/1.pdf"},
		{Name: "lab results", URI: "https://files.example.com/lab/7"},
	}, docs)

	docs, err = Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNormalizeRejectsIncompleteReferences(t *testing.T) {
	for _, d := range []Document{
		{Name: "", URI: "https://files.example.com/a"},
		{Name: "scan", URI: "relative/path.pdf"},
		{Name: "scan", URI: "://broken"},
	} {
		_, err := Normalize([]Document{d})
		assert.ErrorIs(t, err, ErrInvalidDocument, d.URI)
	}
}
