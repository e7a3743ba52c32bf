package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Family groups codes that share one counter.
type Family string

const (
	FamilyMember   Family = "MEMBER"
	FamilyEmployer Family = "EMPLOYER"
	FamilyProvider Family = "PROVIDER"
	FamilyPreAuth  Family = "PREAUTH"
	FamilyClaim    Family = "CLAIM"
	FamilyPayment  Family = "PAYMENT"
)

const (
	digits      = 6
	maxSequence = 999999
	globalYear  = 0
)

type familySpec struct {
	prefix     string
	yearScoped bool
}

var families = map[Family]familySpec{
	FamilyMember:   {prefix: "SHA", yearScoped: true},
	FamilyEmployer: {prefix: "EMP"},
	FamilyProvider: {prefix: "FAC"},
	FamilyPreAuth:  {prefix: "AUTH", yearScoped: true},
	FamilyClaim:    {prefix: "CLM", yearScoped: true},
	FamilyPayment:  {prefix: "PAY", yearScoped: true},
}

var (
	ErrInvalidFamily     = errors.New("invalid_reference_family")
	ErrInvalidCode       = errors.New("invalid_reference_code")
	ErrSequenceExhausted = errors.New("reference_sequence_exhausted")
)

// Sequence is the counter row behind one family (and year, when scoped).
type Sequence struct {
	Family    Family    `json:"family" gorm:"primaryKey;column:family"`
	Year      int       `json:"year" gorm:"primaryKey;column:year"`
	LastValue int64     `json:"last_value" gorm:"column:last_value"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Sequence) TableName() string { return "reference_sequences" }

// Code is a parsed reference code.
type Code struct {
	Family   Family
	Year     int
	Sequence int64
}

func (c Code) String() string {
	s, _ := Format(c.Family, c.Year, c.Sequence)
	return s
}

func ParseFamily(value string) (Family, error) {
	f := Family(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := families[f]; !ok {
		return "", ErrInvalidFamily
	}
	return f, nil
}

// YearScoped reports whether the family restarts numbering every year.
func (f Family) YearScoped() bool {
	return families[f].yearScoped
}

// CounterYear is the year key used in reference_sequences for t.
func (f Family) CounterYear(t time.Time) int {
	if !f.YearScoped() {
		return globalYear
	}
	return t.UTC().Year()
}

// Format renders PREFIX/[YYYY/]NNNNNN.
func Format(family Family, year int, seq int64) (string, error) {
	def, ok := families[family]
	if !ok {
		return "", ErrInvalidFamily
	}
	if seq < 1 || seq > maxSequence {
		return "", ErrSequenceExhausted
	}
	if def.yearScoped {
		if year < 1000 || year > 9999 {
			return "", ErrInvalidCode
		}
		return fmt.Sprintf("%s/%04d/%0*d", def.prefix, year, digits, seq), nil
	}
	return fmt.Sprintf("%s/%0*d", def.prefix, digits, seq), nil
}

// Parse accepts only canonical codes: known prefix, four digit year for
// year-scoped families and a six digit non-zero sequence.
func Parse(code string) (Code, error) {
	parts := strings.Split(strings.TrimSpace(code), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Code{}, ErrInvalidCode
	}

	var family Family
	for f, def := range families {
		if def.prefix == parts[0] {
			family = f
			break
		}
	}
	if family == "" {
		return Code{}, ErrInvalidCode
	}

	def := families[family]
	if def.yearScoped != (len(parts) == 3) {
		return Code{}, ErrInvalidCode
	}

	out := Code{Family: family}
	if def.yearScoped {
		year, ok := fixedDigits(parts[1], 4)
		if !ok || year < 1000 {
			return Code{}, ErrInvalidCode
		}
		out.Year = int(year)
	}
	seq, ok := fixedDigits(parts[len(parts)-1], digits)
	if !ok || seq == 0 {
		return Code{}, ErrInvalidCode
	}
	out.Sequence = seq
	return out, nil
}

// ParseFor parses code and checks that it belongs to family.
func ParseFor(family Family, code string) (Code, error) {
	parsed, err := Parse(code)
	if err != nil {
		return Code{}, err
	}
	if parsed.Family != family {
		return Code{}, ErrInvalidCode
	}
	return parsed, nil
}

func fixedDigits(s string, n int) (int64, bool) {
	if len(s) != n {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
