package trajectory

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT MARK
// ══════════════════════════════════════════════════════════════════════════════

// Closure records the administrative closing of a subject.
type Closure struct {
	Date     string   `json:"date"`
	Approved Approval `json:"approved"`
}

// SubjectMark holds the grades of one subject in one school year.
type SubjectMark struct {
	C1      Grade   `json:"c1"`  // first term
	C2      Grade   `json:"c2"`  // second term
	Rec     Grade   `json:"rec"` // make-up exam, or the final grade for the area key
	Closure Closure `json:"closure"`
}

// IsEmpty reports whether every field of the mark is unset.
func (m SubjectMark) IsEmpty() bool {
	return m.C1.IsEmpty() && m.C2.IsEmpty() && m.Rec.IsEmpty() &&
		m.Closure.Date == "" && m.Closure.Approved.Kind() == ApprovalUnknown
}

// HasInProgress reports whether any cell marks the subject as still owed.
func (m SubjectMark) HasInProgress() bool {
	return m.C1.IsInProgress() ||
		m.C2.IsInProgress() ||
		m.Rec.IsInProgress() ||
		m.Closure.Approved.IsPending()
}

// ══════════════════════════════════════════════════════════════════════════════
// TRAJECTORY
// ══════════════════════════════════════════════════════════════════════════════

// YearRecord maps subject keys to marks. Keys outside the schema are kept.
type YearRecord map[string]SubjectMark

// Trajectory maps school years to their records.
type Trajectory map[SchoolYear]YearRecord

// NewTrajectory returns a trajectory with an empty mark for every subject of
// every configured year.
func NewTrajectory(schema *Schema) Trajectory {
	t := make(Trajectory, len(schema.years))
	for _, y := range schema.Years() {
		rec := make(YearRecord, len(schema.years[y]))
		for _, sub := range schema.years[y] {
			rec[sub.Key] = SubjectMark{}
		}
		t[y] = rec
	}
	return t
}

// Mark returns the mark for (y, key). A missing year or subject reads as an
// empty mark.
func (t Trajectory) Mark(y SchoolYear, key string) SubjectMark {
	rec, ok := t[y]
	if !ok {
		return SubjectMark{}
	}
	return rec[key]
}

// Normalize fills every schema slot missing from t with an empty mark.
// Records that already hold every slot are kept as is.
func (t Trajectory) Normalize(schema *Schema) Trajectory {
	out := make(Trajectory, len(t))
	for y, rec := range t {
		out[y] = rec
	}
	for _, y := range schema.Years() {
		rec, ok := out[y]
		missing := !ok
		if ok {
			for _, sub := range schema.years[y] {
				if _, has := rec[sub.Key]; !has {
					missing = true
					break
				}
			}
		}
		if !missing {
			continue
		}
		filled := make(YearRecord, len(rec)+len(schema.years[y]))
		for k, m := range rec {
			filled[k] = m
		}
		for _, sub := range schema.years[y] {
			if _, has := filled[sub.Key]; !has {
				filled[sub.Key] = SubjectMark{}
			}
		}
		out[y] = filled
	}
	return out
}

// UnmarshalJSON decodes {"1": {...}, ...}. Non-numeric year keys are dropped.
func (t *Trajectory) UnmarshalJSON(data []byte) error {
	var raw map[string]YearRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = nil
		return nil
	}
	out := make(Trajectory, len(raw))
	for k, rec := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		out[SchoolYear(n)] = rec
	}
	*t = out
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultFullName is given to students created from the editor.
	DefaultFullName = "NUEVO ESTUDIANTE"
	// UnnamedFullName is given to imported rows without a name.
	UnnamedFullName = "ESTUDIANTE SIN NOMBRE"
)

// Student is one student of the archive.
type Student struct {
	ID         string     `json:"id"`
	DNI        string     `json:"dni"`
	FullName   string     `json:"fullName"`
	Course     string     `json:"course"`
	Shift      string     `json:"shift"`
	Trajectory Trajectory `json:"trajectory"`
}

// NewStudentParams are the inputs of NewStudent.
type NewStudentParams struct {
	ID       string
	DNI      string
	FullName string
	Course   string
	Shift    string
}

// NewStudent creates a student with a pre-populated trajectory.
func NewStudent(params NewStudentParams, schema *Schema) (*Student, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, shared.NewDomainError("trajectory", "NewStudent", shared.ErrInvalidID, "student id is required")
	}

	fullName := params.FullName
	if strings.TrimSpace(fullName) == "" {
		fullName = DefaultFullName
	}
	course := params.Course
	if strings.TrimSpace(course) == "" {
		course = DefaultCourse
	}

	return &Student{
		ID:         params.ID,
		DNI:        params.DNI,
		FullName:   fullName,
		Course:     course,
		Shift:      params.Shift,
		Trajectory: NewTrajectory(schema),
	}, nil
}

// Clone returns a deep copy of the student.
func (s Student) Clone() Student {
	cp := s
	if s.Trajectory != nil {
		cp.Trajectory = make(Trajectory, len(s.Trajectory))
		for y, rec := range s.Trajectory {
			r := make(YearRecord, len(rec))
			for k, m := range rec {
				r[k] = m
			}
			cp.Trajectory[y] = r
		}
	}
	return cp
}
