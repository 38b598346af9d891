package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERPRET COMMAND
// Sends a free-text instruction to the interpreter, admits the returned
// record and reconciles it into the archive. Any interpreter failure leaves
// the archive unchanged and hands the instruction back for a retry.
// ══════════════════════════════════════════════════════════════════════════════

// InterpretCommand contains a free-text instruction.
type InterpretCommand struct {
	// Instruction is the user's text, e.g. "Ponle E/C en Historia de 1er año".
	Instruction string

	// StudentID selects the student given to the interpreter as context.
	// Empty means no current student.
	StudentID string
}

// Validate validates the command.
func (c InterpretCommand) Validate() error {
	if strings.TrimSpace(c.Instruction) == "" {
		return shared.NewDomainError("interpreter", "Interpret", shared.ErrEmptyValue, "instruction is required")
	}
	return nil
}

// InterpretResult contains the outcome of an interpretation.
type InterpretResult struct {
	// Applied is false when the interpreter failed or its record was rejected.
	Applied bool

	// Student is the reconciled record when Applied is true.
	Student *trajectory.Student

	// Inserted is true when the record did not match an existing student.
	Inserted bool

	// Instruction is echoed back when Applied is false and cleared otherwise.
	Instruction string

	// Reason describes why the record was not applied.
	Reason string
}

// Interpreter turns an instruction into a complete student record (JSON).
type Interpreter interface {
	Interpret(ctx context.Context, instruction string, current *trajectory.Student, schema *trajectory.Schema) ([]byte, error)
}

// InterpretHandler handles the InterpretCommand. At most one interpretation
// is outstanding at a time.
type InterpretHandler struct {
	archive     *archive.Archive
	interpreter Interpreter
	admitter    *trajectory.CandidateAdmitter
	ids         trajectory.IDGenerator
	logger      *slog.Logger

	busy atomic.Bool
}

// NewInterpretHandler creates a new InterpretHandler. A nil interpreter makes
// every command fail with shared.ErrInterpreterDisabled.
func NewInterpretHandler(a *archive.Archive, interpreter Interpreter, ids trajectory.IDGenerator, logger *slog.Logger) *InterpretHandler {
	if ids == nil {
		ids = trajectory.UUIDGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InterpretHandler{
		archive:     a,
		interpreter: interpreter,
		admitter:    trajectory.NewCandidateAdmitter(a.Schema()),
		ids:         ids,
		logger:      logger.With("component", "interpret_command"),
	}
}

// Busy reports whether an interpretation is in progress.
func (h *InterpretHandler) Busy() bool {
	return h.busy.Load()
}

// Handle executes the interpret command.
func (h *InterpretHandler) Handle(ctx context.Context, cmd InterpretCommand) (*InterpretResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("interpret: validation failed: %w", err)
	}
	if h.interpreter == nil {
		return nil, fmt.Errorf("interpret: %w", shared.ErrInterpreterDisabled)
	}
	if !h.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("interpret: %w", shared.ErrInterpreterBusy)
	}
	defer h.busy.Store(false)

	var current *trajectory.Student
	if cmd.StudentID != "" {
		s, ok := h.archive.Snapshot().Find(cmd.StudentID)
		if !ok {
			return nil, fmt.Errorf("interpret: %w", shared.ErrStudentNotFound)
		}
		current = &s
	}

	raw, err := h.interpreter.Interpret(ctx, cmd.Instruction, current, h.archive.Schema())
	if err != nil {
		h.logger.Warn("interpreter failed, no update", "error", err)
		return h.notApplied(cmd, err), nil
	}

	candidate, err := h.admitter.Admit(raw)
	if err != nil {
		h.logger.Warn("interpreter record rejected, no update", "error", err)
		return h.notApplied(cmd, err), nil
	}

	var res trajectory.ReconcileResult
	_, err = h.archive.Apply(ctx, "interpret", func(c trajectory.Collection) (trajectory.Collection, error) {
		res = trajectory.Reconcile(candidate, c, h.ids)
		return res.Collection, nil
	})
	if err != nil {
		return h.notApplied(cmd, err), fmt.Errorf("interpret: %w", err)
	}

	h.logger.Info("interpreter record applied",
		"student_id", res.Student.ID,
		"inserted", res.Inserted,
	)
	return &InterpretResult{
		Applied:  true,
		Student:  &res.Student,
		Inserted: res.Inserted,
	}, nil
}

func (h *InterpretHandler) notApplied(cmd InterpretCommand, err error) *InterpretResult {
	return &InterpretResult{
		Applied:     false,
		Instruction: cmd.Instruction,
		Reason:      err.Error(),
	}
}
