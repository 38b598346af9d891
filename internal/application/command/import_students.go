package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT STUDENTS COMMAND
// Bulk-creates students from a pasted roster, one per line.
// ══════════════════════════════════════════════════════════════════════════════

// ImportStudentsCommand contains the roster text.
type ImportStudentsCommand struct {
	Text   string
	Course string
}

// ImportStudentsResult lists the created students in roster order.
type ImportStudentsResult struct {
	Students []trajectory.Student
}

// RosterParser parses roster text into student params.
type RosterParser interface {
	Parse(text, course string) []trajectory.NewStudentParams
}

// ImportStudentsHandler handles the ImportStudentsCommand.
type ImportStudentsHandler struct {
	archive *archive.Archive
	parser  RosterParser
	ids     trajectory.IDGenerator
	logger  *slog.Logger
}

// NewImportStudentsHandler creates a new ImportStudentsHandler.
func NewImportStudentsHandler(a *archive.Archive, parser RosterParser, ids trajectory.IDGenerator, logger *slog.Logger) *ImportStudentsHandler {
	if ids == nil {
		ids = trajectory.UUIDGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportStudentsHandler{archive: a, parser: parser, ids: ids, logger: logger}
}

// Handle executes the import command. A roster with no usable lines changes
// nothing.
func (h *ImportStudentsHandler) Handle(ctx context.Context, cmd ImportStudentsCommand) (*ImportStudentsResult, error) {
	rows := h.parser.Parse(cmd.Text, cmd.Course)
	if len(rows) == 0 {
		return &ImportStudentsResult{Students: []trajectory.Student{}}, nil
	}

	var created []trajectory.Student
	_, err := h.archive.Apply(ctx, "import_students", func(c trajectory.Collection) (trajectory.Collection, error) {
		created = make([]trajectory.Student, 0, len(rows))
		next := c
		for _, row := range rows {
			row.ID = h.freshID(next)
			s, err := trajectory.NewStudent(row, h.archive.Schema())
			if err != nil {
				return nil, err
			}
			next = next.Add(*s)
			created = append(created, *s)
		}
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("import_students: %w", err)
	}

	h.logger.Info("students imported", "count", len(created), "course", created[0].Course)
	return &ImportStudentsResult{Students: created}, nil
}

func (h *ImportStudentsHandler) freshID(c trajectory.Collection) string {
	for {
		if id := h.ids.NewID(); id != "" && !c.HasID(id) {
			return id
		}
	}
}
