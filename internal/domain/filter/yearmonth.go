package filter

import (
	"encoding/json"
	"fmt"
	"time"
)

const yearMonthLayout = "2006-01"

// YearMonth is a calendar month, serialized as "YYYY-MM".
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// MustYearMonth is ParseYearMonth for literals.
func MustYearMonth(s string) YearMonth {
	ym, err := ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return ym
}

func (ym YearMonth) String() string {
	if ym.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// IsZero reports whether ym is unset.
func (ym YearMonth) IsZero() bool { return ym.Year == 0 && ym.Month == 0 }

// Compare returns -1, 0 or +1.
func (ym YearMonth) Compare(other YearMonth) int {
	a, b := ym.index(), other.index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports ym < other.
func (ym YearMonth) Before(other YearMonth) bool { return ym.Compare(other) < 0 }

func (ym YearMonth) index() int { return ym.Year*12 + int(ym.Month) - 1 }

// MarshalJSON encodes as "YYYY-MM", or null when unset.
func (ym YearMonth) MarshalJSON() ([]byte, error) {
	if ym.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ym.String())
}

// UnmarshalJSON accepts "YYYY-MM", "" or null.
func (ym *YearMonth) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidYearMonth, string(b))
	}
	if s == nil || *s == "" {
		*ym = YearMonth{}
		return nil
	}
	parsed, err := ParseYearMonth(*s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// Span is the inclusive range of months the dataset covers.
type Span struct {
	Min YearMonth `json:"min"`
	Max YearMonth `json:"max"`
}

// Covers reports whether [start, end] spans the whole dataset.
func (s Span) Covers(start, end YearMonth) bool {
	return start.Compare(s.Min) <= 0 && end.Compare(s.Max) >= 0
}
