package query

import (
	"context"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PENDING QUERY
// Lists the subjects a student still owes as of a school year.
// ══════════════════════════════════════════════════════════════════════════════

// GetPendingQuery selects the student and the year to evaluate.
type GetPendingQuery struct {
	// StudentID or DNI identifies the student. StudentID wins when both are set.
	StudentID string
	DNI       string

	// ThroughYear is the year under evaluation. Zero means the year of the
	// student's course, or the last year when the course has none.
	ThroughYear trajectory.SchoolYear
}

// Validate checks the query parameters.
func (q *GetPendingQuery) Validate() error {
	if strings.TrimSpace(q.StudentID) == "" && strings.TrimSpace(q.DNI) == "" {
		return shared.NewDomainError("trajectory", "GetPending", shared.ErrEmptyValue, "either student_id or dni must be provided")
	}
	return nil
}

// PendingDTO is the pending list of one student.
type PendingDTO struct {
	StudentID   string   `json:"student_id"`
	DNI         string   `json:"dni"`
	FullName    string   `json:"full_name"`
	Course      string   `json:"course"`
	ThroughYear int      `json:"through_year"`
	Pending     []string `json:"pending"`
	HasDebts    bool     `json:"has_debts"`
}

// GetPendingHandler handles GetPendingQuery.
type GetPendingHandler struct {
	source    SnapshotSource
	evaluator *trajectory.DebtEvaluator
}

// NewGetPendingHandler creates a new GetPendingHandler.
func NewGetPendingHandler(source SnapshotSource) *GetPendingHandler {
	return &GetPendingHandler{
		source:    source,
		evaluator: trajectory.NewDebtEvaluator(source.Schema()),
	}
}

// Handle executes the query.
func (h *GetPendingHandler) Handle(ctx context.Context, q GetPendingQuery) (*PendingDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	snap := h.source.Snapshot()
	var (
		s  trajectory.Student
		ok bool
	)
	if q.StudentID != "" {
		s, ok = snap.Find(q.StudentID)
	} else {
		s, ok = snap.FindByDNI(q.DNI)
	}
	if !ok {
		return nil, shared.ErrStudentNotFound
	}

	year := q.ThroughYear
	if year == 0 {
		if y, valid := trajectory.YearFromCourse(s.Course); valid {
			year = y
		} else {
			year = trajectory.LastYear
		}
	}

	pending := h.evaluator.ComputePending(s, year)
	return &PendingDTO{
		StudentID:   s.ID,
		DNI:         s.DNI,
		FullName:    s.FullName,
		Course:      s.Course,
		ThroughYear: int(year),
		Pending:     pending,
		HasDebts:    len(pending) > 0,
	}, nil
}
