// Package attachment holds references to supporting documents kept in
// external storage. Only the name and location are recorded.
package attachment

import (
	"errors"
	"net/url"
	"strings"

	"gorm.io/datatypes"
)

var ErrInvalidDocument = errors.New("invalid_supporting_document")

type Document struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Documents is stored as a JSON array.
type Documents = datatypes.JSONSlice[Document]

// Normalize trims every reference and drops exact repeats. Each document
// needs a name and an absolute URI.
func Normalize(docs []Document) (Documents, error) {
	out := make(Documents, 0, len(docs))
	seen := make(map[Document]struct{}, len(docs))
	for _, d := range docs {
		d.Name = strings.TrimSpace(d.Name)
		d.URI = strings.TrimSpace(d.URI)
		if d.Name == "" {
			return nil, ErrInvalidDocument
		}
		u, err := url.Parse(d.URI)
		if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "" && u.Path == "") {
			return nil, ErrInvalidDocument
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}
