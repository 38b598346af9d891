package trajectory

import (
	"sort"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// HeaderField names an editable header field of a student.
type HeaderField string

const (
	FieldDNI      HeaderField = "dni"
	FieldFullName HeaderField = "fullName"
	FieldCourse   HeaderField = "course"
	FieldShift    HeaderField = "shift"
)

// IsValid reports whether the field is one of dni, fullName, course or shift.
func (f HeaderField) IsValid() bool {
	switch f {
	case FieldDNI, FieldFullName, FieldCourse, FieldShift:
		return true
	}
	return false
}

// Collection is an immutable, ordered list of students. Every mutating method
// returns a new Collection and leaves the receiver untouched; records that
// are not affected are shared with the original.
type Collection []Student

// Len returns the number of students.
func (c Collection) Len() int { return len(c) }

// indexOf returns the position of the student with the given id, or -1.
func (c Collection) indexOf(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the student with the given id.
func (c Collection) Find(id string) (Student, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c[i], true
	}
	return Student{}, false
}

// FindByDNI returns the first student with the given DNI.
func (c Collection) FindByDNI(dni string) (Student, bool) {
	for _, s := range c {
		if s.DNI == dni {
			return s, true
		}
	}
	return Student{}, false
}

// HasID reports whether any student uses id.
func (c Collection) HasID(id string) bool {
	return c.indexOf(id) >= 0
}

func (c Collection) replaceAt(i int, s Student) Collection {
	out := make(Collection, len(c))
	copy(out, c)
	out[i] = s
	return out
}

// Add returns a new collection with s appended.
func (c Collection) Add(s ...Student) Collection {
	out := make(Collection, len(c), len(c)+len(s))
	copy(out, c)
	return append(out, s...)
}

// UpdateSubject replaces the mark at (year, subjectKey) of one student.
// Keys outside the schema are accepted and stored as is.
func (c Collection) UpdateSubject(studentID string, year SchoolYear, subjectKey string, mark SubjectMark) (Collection, error) {
	if !year.IsValid() {
		return nil, shared.ErrInvalidYear
	}
	i := c.indexOf(studentID)
	if i < 0 {
		return nil, shared.ErrStudentNotFound
	}

	s := c[i]
	t := make(Trajectory, len(s.Trajectory)+1)
	for y, rec := range s.Trajectory {
		t[y] = rec
	}
	rec := make(YearRecord, len(t[year])+1)
	for k, m := range t[year] {
		rec[k] = m
	}
	rec[subjectKey] = mark
	t[year] = rec
	s.Trajectory = t

	return c.replaceAt(i, s), nil
}

// UpdateHeaderField sets one header field of a student.
func (c Collection) UpdateHeaderField(studentID string, field HeaderField, value string) (Collection, error) {
	if !field.IsValid() {
		return nil, shared.ErrInvalidHeaderField
	}
	i := c.indexOf(studentID)
	if i < 0 {
		return nil, shared.ErrStudentNotFound
	}

	s := c[i]
	switch field {
	case FieldDNI:
		s.DNI = value
	case FieldFullName:
		s.FullName = value
	case FieldCourse:
		s.Course = value
	case FieldShift:
		s.Shift = value
	}
	return c.replaceAt(i, s), nil
}

// Delete removes the student with the given id. The boolean reports whether
// a student was removed.
func (c Collection) Delete(studentID string) (Collection, bool) {
	i := c.indexOf(studentID)
	if i < 0 {
		return c, false
	}
	out := make(Collection, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...), true
}

// Search returns students whose full name contains query (case-folded) or
// whose DNI contains it, sorted by full name. An empty query matches all.
func (c Collection) Search(query string) []Student {
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]Student, 0, len(c))
	for _, s := range c {
		if q == "" || strings.Contains(fold.String(s.FullName), q) || strings.Contains(s.DNI, query) {
			out = append(out, s)
		}
	}
	SortByName(out)
	return out
}

// InCourse returns the students of one course, sorted by full name.
func (c Collection) InCourse(course string) []Student {
	out := make([]Student, 0)
	for _, s := range c {
		if s.Course == course {
			out = append(out, s)
		}
	}
	SortByName(out)
	return out
}

// Courses returns the distinct non-empty course labels in sorted order.
func (c Collection) Courses() []string {
	seen := make(map[string]struct{}, len(c))
	out := make([]string, 0)
	for _, s := range c {
		if s.Course == "" {
			continue
		}
		if _, ok := seen[s.Course]; ok {
			continue
		}
		seen[s.Course] = struct{}{}
		out = append(out, s.Course)
	}
	sort.Strings(out)
	return out
}

// SortByName orders students by full name using Spanish collation.
func SortByName(students []Student) {
	col := collate.New(language.Spanish)
	sort.SliceStable(students, func(i, j int) bool {
		return col.CompareString(students[i].FullName, students[j].FullName) < 0
	})
}
