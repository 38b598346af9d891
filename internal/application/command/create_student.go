// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the archive. Every command runs
// through archive.Apply, so a successful command is always persisted.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE STUDENT COMMAND
// Adds a blank student record, ready to be filled in from the editor.
// ══════════════════════════════════════════════════════════════════════════════

// CreateStudentCommand contains the data needed to create a student.
type CreateStudentCommand struct {
	// Course of the new student. Empty means trajectory.DefaultCourse.
	Course string
}

// CreateStudentResult contains the created student.
type CreateStudentResult struct {
	Student trajectory.Student
}

// CreateStudentHandler handles the CreateStudentCommand.
type CreateStudentHandler struct {
	archive *archive.Archive
	ids     trajectory.IDGenerator
	logger  *slog.Logger
}

// NewCreateStudentHandler creates a new CreateStudentHandler.
func NewCreateStudentHandler(a *archive.Archive, ids trajectory.IDGenerator, logger *slog.Logger) *CreateStudentHandler {
	if ids == nil {
		ids = trajectory.UUIDGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateStudentHandler{archive: a, ids: ids, logger: logger}
}

// Handle executes the create student command.
func (h *CreateStudentHandler) Handle(ctx context.Context, cmd CreateStudentCommand) (*CreateStudentResult, error) {
	var created trajectory.Student
	_, err := h.archive.Apply(ctx, "create_student", func(c trajectory.Collection) (trajectory.Collection, error) {
		next, s, err := c.CreateStudent(cmd.Course, h.archive.Schema(), h.ids)
		created = s
		return next, err
	})
	if err != nil {
		return nil, fmt.Errorf("create_student: %w", err)
	}

	h.logger.Info("student created", "student_id", created.ID, "course", created.Course)
	return &CreateStudentResult{Student: created}, nil
}
