package query

import (
	"context"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE REPORT QUERY
// Builds the grade sheet of one course for one school year: every student of
// the course with the year's grades and the subjects still owed.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseReportQuery selects the course and year.
type GetCourseReportQuery struct {
	Course string

	// Year defaults to the first digit of Course.
	Year trajectory.SchoolYear
}

// Validate checks the query parameters and fills in the default year.
func (q *GetCourseReportQuery) Validate() error {
	if strings.TrimSpace(q.Course) == "" {
		return shared.NewDomainError("trajectory", "GetCourseReport", shared.ErrEmptyValue, "course is required")
	}
	if q.Year == 0 {
		y, ok := trajectory.YearFromCourse(q.Course)
		if !ok {
			return shared.NewDomainError("trajectory", "GetCourseReport", shared.ErrInvalidInput, "year is required for this course label")
		}
		q.Year = y
	}
	if !q.Year.IsValid() {
		return shared.ErrInvalidYear
	}
	return nil
}

// ReportColumnDTO is one subject column group (three cells per student).
type ReportColumnDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	// ThirdCell is "FINAL" for the area grade and "REC" otherwise.
	ThirdCell string `json:"third_cell"`
}

// GradeCellDTO is one grade cell with its display tone.
type GradeCellDTO struct {
	Value string          `json:"value"`
	Tone  trajectory.Tone `json:"tone"`
}

// ReportMarkDTO holds the three cells of one subject.
type ReportMarkDTO struct {
	C1  GradeCellDTO `json:"c1"`
	C2  GradeCellDTO `json:"c2"`
	Rec GradeCellDTO `json:"rec"`
}

// ReportRowDTO is one student row.
type ReportRowDTO struct {
	StudentID string          `json:"student_id"`
	DNI       string          `json:"dni"`
	FullName  string          `json:"full_name"`
	Marks     []ReportMarkDTO `json:"marks"` // same order as Columns
	Pending   []string        `json:"pending"`
	HasDebts  bool            `json:"has_debts"`
}

// CourseReportDTO is the full grade sheet.
type CourseReportDTO struct {
	Course    string            `json:"course"`
	Year      int               `json:"year"`
	YearLabel string            `json:"year_label"`
	Columns   []ReportColumnDTO `json:"columns"`
	Rows      []ReportRowDTO    `json:"rows"`
	Total     int               `json:"total"`
}

// GetCourseReportHandler handles GetCourseReportQuery.
type GetCourseReportHandler struct {
	source    SnapshotSource
	evaluator *trajectory.DebtEvaluator
}

// NewGetCourseReportHandler creates a new GetCourseReportHandler.
func NewGetCourseReportHandler(source SnapshotSource) *GetCourseReportHandler {
	return &GetCourseReportHandler{
		source:    source,
		evaluator: trajectory.NewDebtEvaluator(source.Schema()),
	}
}

// Handle executes the query.
func (h *GetCourseReportHandler) Handle(ctx context.Context, q GetCourseReportQuery) (*CourseReportDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	subjects := h.source.Schema().Subjects(q.Year)
	columns := make([]ReportColumnDTO, 0, len(subjects))
	for _, sub := range subjects {
		third := "REC"
		if sub.IsArea() {
			third = "FINAL"
		}
		columns = append(columns, ReportColumnDTO{Key: sub.Key, Label: sub.Label, ThirdCell: third})
	}

	students := h.source.Snapshot().InCourse(q.Course)
	rows := make([]ReportRowDTO, 0, len(students))
	for _, s := range students {
		marks := make([]ReportMarkDTO, 0, len(subjects))
		for _, sub := range subjects {
			m := s.Trajectory.Mark(q.Year, sub.Key)
			marks = append(marks, ReportMarkDTO{
				C1:  cell(m.C1),
				C2:  cell(m.C2),
				Rec: cell(m.Rec),
			})
		}

		pending := h.evaluator.ComputePending(s, q.Year)
		rows = append(rows, ReportRowDTO{
			StudentID: s.ID,
			DNI:       s.DNI,
			FullName:  s.FullName,
			Marks:     marks,
			Pending:   pending,
			HasDebts:  len(pending) > 0,
		})
	}

	return &CourseReportDTO{
		Course:    q.Course,
		Year:      int(q.Year),
		YearLabel: q.Year.Label(),
		Columns:   columns,
		Rows:      rows,
		Total:     len(rows),
	}, nil
}

func cell(g trajectory.Grade) GradeCellDTO {
	return GradeCellDTO{Value: g.String(), Tone: trajectory.ToneOf(g)}
}
