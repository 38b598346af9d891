package trajectory

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE
// ══════════════════════════════════════════════════════════════════════════════

// GradeKind classifies a grade cell.
type GradeKind int

const (
	GradeEmpty GradeKind = iota
	GradeInProgress
	GradePassing
	GradeOther
)

// String returns the name of the kind.
func (k GradeKind) String() string {
	switch k {
	case GradeEmpty:
		return "empty"
	case GradeInProgress:
		return "in_progress"
	case GradePassing:
		return "passing"
	default:
		return "other"
	}
}

const (
	// InProgressMark is the canonical "still owed" marker.
	InProgressMark = "E/C"
	// InProgressLong is the spelled-out form accepted on input.
	InProgressLong = "EN CURSO"

	// PassingThreshold is the lowest grade that clears a subject or a year.
	PassingThreshold = 7
	maxGrade         = 10
)

// Grade is a single grade cell: Empty, InProgress, Passing(7..10) or Other.
// The raw text is kept so that Other values and lowercase markers survive a
// round-trip unchanged.
type Grade struct {
	kind GradeKind
	raw  string
}

// ParseGrade classifies raw cell text. It never fails.
func ParseGrade(raw string) Grade {
	switch {
	case raw == "":
		return Grade{kind: GradeEmpty}
	case isInProgressText(raw):
		return Grade{kind: GradeInProgress, raw: raw}
	case isPassingText(raw):
		return Grade{kind: GradePassing, raw: raw}
	default:
		return Grade{kind: GradeOther, raw: raw}
	}
}

// EmptyGrade returns an unset grade.
func EmptyGrade() Grade { return Grade{kind: GradeEmpty} }

// InProgressGrade returns the canonical "E/C" grade.
func InProgressGrade() Grade { return Grade{kind: GradeInProgress, raw: InProgressMark} }

// PassingGrade returns a numeric passing grade.
func PassingGrade(n int) (Grade, error) {
	if n < PassingThreshold || n > maxGrade {
		return Grade{}, shared.NewDomainError("trajectory", "PassingGrade", shared.ErrValueOutOfRange,
			fmt.Sprintf("passing grade must be between %d and %d, got %d", PassingThreshold, maxGrade, n))
	}
	return Grade{kind: GradePassing, raw: fmt.Sprintf("%d", n)}, nil
}

// Kind returns the grade classification.
func (g Grade) Kind() GradeKind { return g.kind }

// String returns the raw cell text.
func (g Grade) String() string { return g.raw }

// IsEmpty reports whether the cell is unset.
func (g Grade) IsEmpty() bool { return g.kind == GradeEmpty }

// IsInProgress reports whether the cell marks the subject as still owed.
func (g Grade) IsInProgress() bool { return g.kind == GradeInProgress }

// IsPassing reports whether the cell holds one of 7, 8, 9 or 10.
func (g Grade) IsPassing() bool { return g.kind == GradePassing }

// IsEnumerated reports whether the cell holds a value offered by the editor
// drop-down: empty, "E/C" or 7..10.
func (g Grade) IsEnumerated() bool {
	switch g.kind {
	case GradeEmpty, GradePassing:
		return true
	case GradeInProgress:
		return g.raw == InProgressMark
	default:
		return false
	}
}

// Number returns the leading integer of the cell text, or 0 when the text
// does not start with one. "8abc" is 8, "7.5" is 7, "E/C" is 0.
func (g Grade) Number() int {
	return leadingInt(g.raw)
}

// Clears reports whether the grade is at or above the passing threshold.
func (g Grade) Clears() bool {
	return g.Number() >= PassingThreshold
}

// MarshalJSON encodes the grade as its raw string.
func (g Grade) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.raw)
}

// UnmarshalJSON accepts a string, or null as empty.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return shared.WrapError("trajectory", "UnmarshalGrade", shared.ErrInvalidFormat, "grade must be a string", err)
	}
	if s == nil {
		*g = EmptyGrade()
		return nil
	}
	*g = ParseGrade(*s)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// APPROVAL
// ══════════════════════════════════════════════════════════════════════════════

// ApprovalKind classifies closure.approved.
type ApprovalKind int

const (
	ApprovalUnknown ApprovalKind = iota
	ApprovalApproved
	ApprovalPending
	ApprovalOther
)

// ApprovedMark is the text stored for an approved closure.
const ApprovedMark = "SI"

// Approval is the closure approval state: unset, "SI", "E/C" or other text.
type Approval struct {
	kind ApprovalKind
	raw  string
}

// ParseApproval classifies raw closure text.
func ParseApproval(raw string) Approval {
	switch {
	case raw == "":
		return Approval{kind: ApprovalUnknown}
	case strings.EqualFold(raw, ApprovedMark):
		return Approval{kind: ApprovalApproved, raw: raw}
	case isInProgressText(raw):
		return Approval{kind: ApprovalPending, raw: raw}
	default:
		return Approval{kind: ApprovalOther, raw: raw}
	}
}

// Approved returns an approved closure state.
func Approved() Approval { return Approval{kind: ApprovalApproved, raw: ApprovedMark} }

// PendingApproval returns the "E/C" closure state.
func PendingApproval() Approval { return Approval{kind: ApprovalPending, raw: InProgressMark} }

// Kind returns the approval classification.
func (a Approval) Kind() ApprovalKind { return a.kind }

// String returns the raw text.
func (a Approval) String() string { return a.raw }

// IsPending reports whether the closure marks the subject as still owed.
func (a Approval) IsPending() bool { return a.kind == ApprovalPending }

// IsEnumerated reports whether the value is one of "", "SI" or "E/C".
func (a Approval) IsEnumerated() bool {
	switch a.kind {
	case ApprovalUnknown:
		return true
	case ApprovalApproved:
		return a.raw == ApprovedMark
	case ApprovalPending:
		return a.raw == InProgressMark
	default:
		return false
	}
}

// MarshalJSON encodes the approval as its raw string.
func (a Approval) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// UnmarshalJSON accepts a string, or null as unset.
func (a *Approval) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return shared.WrapError("trajectory", "UnmarshalApproval", shared.ErrInvalidFormat, "approval must be a string", err)
	}
	if s == nil {
		*a = Approval{}
		return nil
	}
	*a = ParseApproval(*s)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func isInProgressText(s string) bool {
	return strings.EqualFold(s, InProgressMark) || strings.EqualFold(s, InProgressLong)
}

func isPassingText(s string) bool {
	switch s {
	case "7", "8", "9", "10":
		return true
	}
	return false
}

// leadingInt parses optional leading whitespace, an optional sign and a run of
// decimal digits. Anything else yields 0.
func leadingInt(s string) int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if s == "" {
		return 0
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < 1<<30 {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}
