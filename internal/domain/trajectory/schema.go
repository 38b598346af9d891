package trajectory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOL YEAR
// ══════════════════════════════════════════════════════════════════════════════

// SchoolYear is a year of secondary school, 1 through 5.
type SchoolYear int

const (
	FirstYear SchoolYear = 1
	LastYear  SchoolYear = 5
)

// IsValid reports whether the year is within 1..5.
func (y SchoolYear) IsValid() bool {
	return y >= FirstYear && y <= LastYear
}

// String returns the year as used for trajectory keys ("1".."5").
func (y SchoolYear) String() string {
	return strconv.Itoa(int(y))
}

// Label returns the display label, e.g. "3° Año".
func (y SchoolYear) Label() string {
	return fmt.Sprintf("%d° Año", int(y))
}

// ParseSchoolYear parses "1".."5".
func ParseSchoolYear(s string) (SchoolYear, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, shared.WrapError("trajectory", "ParseSchoolYear", shared.ErrInvalidFormat,
			fmt.Sprintf("invalid school year %q", s), err)
	}
	y := SchoolYear(n)
	if !y.IsValid() {
		return 0, shared.ErrInvalidYear
	}
	return y, nil
}

// Years returns all school years in order.
func Years() []SchoolYear {
	out := make([]SchoolYear, 0, int(LastYear))
	for y := FirstYear; y <= LastYear; y++ {
		out = append(out, y)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT SCHEMA
// ══════════════════════════════════════════════════════════════════════════════

// AreaKey is the reserved subject key holding the year-level area grade.
const AreaKey = "notaArea"

// Subject is one entry of a year's subject list.
type Subject struct {
	Key   string
	Label string
}

// IsArea reports whether the subject is the area grade.
func (s Subject) IsArea() bool {
	return s.Key == AreaKey
}

// Schema maps each school year to its ordered subject list.
// Subject order is significant: reports and pending lists follow it.
type Schema struct {
	years map[SchoolYear][]Subject
}

// NewSchema builds a schema from an ordered subject list per year.
// Subject slices are copied.
func NewSchema(years map[SchoolYear][]Subject) *Schema {
	s := &Schema{years: make(map[SchoolYear][]Subject, len(years))}
	for y, subjects := range years {
		cp := make([]Subject, len(subjects))
		copy(cp, subjects)
		s.years[y] = cp
	}
	return s
}

var (
	historia  = Subject{Key: "historia", Label: "HISTORIA"}
	geografia = Subject{Key: "geografia", Label: "GEOGRAFÍA"}
	tfpyc     = Subject{Key: "tfpyc", Label: "T.F.P.yC."}
	tcs       = Subject{Key: "tcs", Label: "T.C.S."}
	teys      = Subject{Key: "teys", Label: "T.E.yS."}
	eicsyh    = Subject{Key: "eicsyh", Label: "E.I.C.S.yH."}
	notaArea  = Subject{Key: AreaKey, Label: "NOTA DE ÁREA"}
)

// DefaultSchema returns the social sciences area schema used in production.
func DefaultSchema() *Schema {
	return NewSchema(map[SchoolYear][]Subject{
		1: {historia, geografia, tfpyc, tcs, notaArea},
		2: {historia, geografia, tfpyc, teys, notaArea},
		3: {historia, geografia, eicsyh, notaArea},
		4: {historia, geografia, eicsyh, notaArea},
		5: {eicsyh, notaArea},
	})
}

// Subjects returns the ordered subjects of a year, or nil when the year is not configured.
func (s *Schema) Subjects(y SchoolYear) []Subject {
	subjects, ok := s.years[y]
	if !ok {
		return nil
	}
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	return out
}

// HasYear reports whether the year is configured.
func (s *Schema) HasYear(y SchoolYear) bool {
	_, ok := s.years[y]
	return ok
}

// Has reports whether key is a subject of year y.
func (s *Schema) Has(y SchoolYear, key string) bool {
	for _, sub := range s.years[y] {
		if sub.Key == key {
			return true
		}
	}
	return false
}

// Label returns the display label of a subject in year y.
func (s *Schema) Label(y SchoolYear, key string) (string, bool) {
	for _, sub := range s.years[y] {
		if sub.Key == key {
			return sub.Label, true
		}
	}
	return "", false
}

// Years returns the configured years in ascending order.
func (s *Schema) Years() []SchoolYear {
	out := make([]SchoolYear, 0, len(s.years))
	for _, y := range Years() {
		if s.HasYear(y) {
			out = append(out, y)
		}
	}
	return out
}

// MarshalJSON renders {"1":{"historia":"HISTORIA",...},...} keeping subject order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, y := range s.Years() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(y.String()))
		buf.WriteString(":{")
		for j, sub := range s.years[y] {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(sub.Key)
			if err != nil {
				return nil, err
			}
			label, err := json.Marshal(sub.Label)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(label)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
