// Package importer parses pasted class rosters into new student records.
package importer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// RosterParser turns a roster, one student per line, into student params.
//
// Each non-blank line is split on whitespace: the first token is the DNI and
// the rest, joined by single spaces and upper-cased, is the full name.
// A line with no name gets trajectory.UnnamedFullName.
type RosterParser struct {
	lang language.Tag
}

// NewRosterParser creates a parser that upper-cases names with Spanish rules.
func NewRosterParser() *RosterParser {
	return &RosterParser{lang: language.Spanish}
}

// Parse parses text. An empty course means trajectory.DefaultCourse. IDs are
// left empty for the caller to assign.
func (p *RosterParser) Parse(text, course string) []trajectory.NewStudentParams {
	if strings.TrimSpace(course) == "" {
		course = trajectory.DefaultCourse
	}

	// a Caser is stateful and must not be shared between goroutines
	upper := cases.Upper(p.lang)

	lines := strings.Split(text, "\n")
	out := make([]trajectory.NewStudentParams, 0, len(lines))
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		fullName := strings.Join(parts[1:], " ")
		if fullName == "" {
			fullName = trajectory.UnnamedFullName
		}

		out = append(out, trajectory.NewStudentParams{
			DNI:      parts[0],
			FullName: upper.String(fullName),
			Course:   course,
		})
	}
	return out
}
