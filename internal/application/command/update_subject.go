package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE SUBJECT COMMAND
// Replaces the mark of one subject in one school year.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateSubjectCommand contains a full replacement mark.
type UpdateSubjectCommand struct {
	StudentID  string
	Year       trajectory.SchoolYear
	SubjectKey string
	Mark       trajectory.SubjectMark
}

// Validate validates the command.
func (c UpdateSubjectCommand) Validate() error {
	if strings.TrimSpace(c.StudentID) == "" {
		return shared.NewDomainError("trajectory", "UpdateSubject", shared.ErrEmptyValue, "student_id is required")
	}
	if strings.TrimSpace(c.SubjectKey) == "" {
		return shared.NewDomainError("trajectory", "UpdateSubject", shared.ErrEmptyValue, "subject key is required")
	}
	if !c.Year.IsValid() {
		return shared.ErrInvalidYear
	}
	return nil
}

// UpdateSubjectResult contains the updated student.
type UpdateSubjectResult struct {
	Student trajectory.Student
}

// UpdateSubjectHandler handles the UpdateSubjectCommand.
type UpdateSubjectHandler struct {
	archive *archive.Archive
}

// NewUpdateSubjectHandler creates a new UpdateSubjectHandler.
func NewUpdateSubjectHandler(a *archive.Archive) *UpdateSubjectHandler {
	return &UpdateSubjectHandler{archive: a}
}

// Handle executes the update subject command.
func (h *UpdateSubjectHandler) Handle(ctx context.Context, cmd UpdateSubjectCommand) (*UpdateSubjectResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_subject: validation failed: %w", err)
	}

	next, err := h.archive.Apply(ctx, "update_subject", func(c trajectory.Collection) (trajectory.Collection, error) {
		return c.UpdateSubject(cmd.StudentID, cmd.Year, cmd.SubjectKey, cmd.Mark)
	})
	if err != nil {
		return nil, fmt.Errorf("update_subject: %w", err)
	}

	s, _ := next.Find(cmd.StudentID)
	return &UpdateSubjectResult{Student: s}, nil
}
