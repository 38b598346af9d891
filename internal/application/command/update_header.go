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
// UPDATE HEADER COMMAND
// Sets dni, fullName, course or shift.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateHeaderCommand sets one header field.
type UpdateHeaderCommand struct {
	StudentID string
	Field     trajectory.HeaderField
	Value     string
}

// Validate validates the command.
func (c UpdateHeaderCommand) Validate() error {
	if strings.TrimSpace(c.StudentID) == "" {
		return shared.NewDomainError("trajectory", "UpdateHeaderField", shared.ErrEmptyValue, "student_id is required")
	}
	if !c.Field.IsValid() {
		return shared.ErrInvalidHeaderField
	}
	return nil
}

// UpdateHeaderResult contains the updated student.
type UpdateHeaderResult struct {
	Student trajectory.Student
}

// UpdateHeaderHandler handles the UpdateHeaderCommand.
type UpdateHeaderHandler struct {
	archive *archive.Archive
}

// NewUpdateHeaderHandler creates a new UpdateHeaderHandler.
func NewUpdateHeaderHandler(a *archive.Archive) *UpdateHeaderHandler {
	return &UpdateHeaderHandler{archive: a}
}

// Handle executes the update header command.
func (h *UpdateHeaderHandler) Handle(ctx context.Context, cmd UpdateHeaderCommand) (*UpdateHeaderResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_header: validation failed: %w", err)
	}

	next, err := h.archive.Apply(ctx, "update_header", func(c trajectory.Collection) (trajectory.Collection, error) {
		return c.UpdateHeaderField(cmd.StudentID, cmd.Field, cmd.Value)
	})
	if err != nil {
		return nil, fmt.Errorf("update_header: %w", err)
	}

	s, _ := next.Find(cmd.StudentID)
	return &UpdateHeaderResult{Student: s}, nil
}
