package trajectory

import "fmt"

// Shift labels used in course names.
const (
	ShiftMorning   = "T.M."
	ShiftAfternoon = "T.T."
)

// DefaultCourse is assigned when no course is given.
const DefaultCourse = "1°1° - T.M."

const divisionsPerYear = 3

// CourseOptions enumerates every course label: "{year}°{division}° - {shift}"
// for years 1..5, divisions 1..3 and both shifts.
func CourseOptions() []string {
	shifts := []string{ShiftMorning, ShiftAfternoon}
	out := make([]string, 0, int(LastYear)*divisionsPerYear*len(shifts))
	for _, y := range Years() {
		for d := 1; d <= divisionsPerYear; d++ {
			for _, s := range shifts {
				out = append(out, fmt.Sprintf("%d°%d° - %s", int(y), d, s))
			}
		}
	}
	return out
}

// YearFromCourse returns the school year encoded by the first digit of a
// course label. ok is false when the label has no digit or the digit is not
// a valid year.
func YearFromCourse(course string) (SchoolYear, bool) {
	for _, r := range course {
		if r >= '0' && r <= '9' {
			y := SchoolYear(r - '0')
			return y, y.IsValid()
		}
	}
	return 0, false
}

// CreateStudent appends a new blank student to the collection. An empty
// course falls back to DefaultCourse.
func (c Collection) CreateStudent(course string, schema *Schema, ids IDGenerator) (Collection, Student, error) {
	s, err := NewStudent(NewStudentParams{
		ID:     freshID(c, ids),
		Course: course,
	}, schema)
	if err != nil {
		return nil, Student{}, err
	}
	return c.Add(*s), *s, nil
}
