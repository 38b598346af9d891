package query

import (
	"context"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST / GET STUDENTS QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery filters students by name or DNI.
type ListStudentsQuery struct {
	Search string
	Course string
}

// StudentSummaryDTO is a list entry.
type StudentSummaryDTO struct {
	ID       string `json:"id"`
	DNI      string `json:"dni"`
	FullName string `json:"full_name"`
	Course   string `json:"course"`
	Shift    string `json:"shift"`
}

// ListStudentsHandler handles ListStudentsQuery.
type ListStudentsHandler struct {
	source SnapshotSource
}

// NewListStudentsHandler creates a new ListStudentsHandler.
func NewListStudentsHandler(source SnapshotSource) *ListStudentsHandler {
	return &ListStudentsHandler{source: source}
}

// Handle returns matching students sorted by full name.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) ([]StudentSummaryDTO, error) {
	found := h.source.Snapshot().Search(q.Search)

	out := make([]StudentSummaryDTO, 0, len(found))
	for _, s := range found {
		if q.Course != "" && s.Course != q.Course {
			continue
		}
		out = append(out, StudentSummaryDTO{
			ID:       s.ID,
			DNI:      s.DNI,
			FullName: s.FullName,
			Course:   s.Course,
			Shift:    s.Shift,
		})
	}
	return out, nil
}

// GetStudentHandler returns one full student record.
type GetStudentHandler struct {
	source SnapshotSource
}

// NewGetStudentHandler creates a new GetStudentHandler.
func NewGetStudentHandler(source SnapshotSource) *GetStudentHandler {
	return &GetStudentHandler{source: source}
}

// Handle returns the student with the given id.
func (h *GetStudentHandler) Handle(ctx context.Context, id string) (*trajectory.Student, error) {
	s, ok := h.source.Snapshot().Find(id)
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return &s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST COURSES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// CoursesDTO lists the courses in use and every selectable label.
type CoursesDTO struct {
	Available []string `json:"available"`
	Options   []string `json:"options"`
}

// ListCoursesHandler handles the courses listing.
type ListCoursesHandler struct {
	source SnapshotSource
}

// NewListCoursesHandler creates a new ListCoursesHandler.
func NewListCoursesHandler(source SnapshotSource) *ListCoursesHandler {
	return &ListCoursesHandler{source: source}
}

// Handle returns the distinct courses of the archive and the full option list.
func (h *ListCoursesHandler) Handle(ctx context.Context) (*CoursesDTO, error) {
	return &CoursesDTO{
		Available: h.source.Snapshot().Courses(),
		Options:   trajectory.CourseOptions(),
	}, nil
}
