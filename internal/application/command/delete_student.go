package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand removes a student permanently.
type DeleteStudentCommand struct {
	StudentID string
}

// DeleteStudentResult reports whether a student was removed.
type DeleteStudentResult struct {
	Deleted bool
}

// DeleteStudentHandler handles the DeleteStudentCommand.
type DeleteStudentHandler struct {
	archive *archive.Archive
	logger  *slog.Logger
}

// NewDeleteStudentHandler creates a new DeleteStudentHandler.
func NewDeleteStudentHandler(a *archive.Archive, logger *slog.Logger) *DeleteStudentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteStudentHandler{archive: a, logger: logger}
}

// Handle executes the delete student command. Deleting an unknown id is not
// an error; nothing is saved in that case.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) (*DeleteStudentResult, error) {
	if !h.archive.Snapshot().HasID(cmd.StudentID) {
		return &DeleteStudentResult{Deleted: false}, nil
	}

	deleted := false
	_, err := h.archive.Apply(ctx, "delete_student", func(c trajectory.Collection) (trajectory.Collection, error) {
		next, ok := c.Delete(cmd.StudentID)
		deleted = ok
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete_student: %w", err)
	}

	if deleted {
		h.logger.Info("student deleted", "student_id", cmd.StudentID)
	}
	return &DeleteStudentResult{Deleted: deleted}, nil
}
