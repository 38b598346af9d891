package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/application/archive"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/importer"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/memory"
)

func newArchive(t *testing.T) (*archive.Archive, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return archive.Open(context.Background(), store, trajectory.DefaultSchema(), archive.Config{Seed: true}), store
}

func counterIDs() trajectory.IDGenerator {
	n := 100
	var mu sync.Mutex
	return trajectory.IDGeneratorFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

// fakeInterpreter returns a fixed response, optionally blocking until released.
type fakeInterpreter struct {
	response []byte
	err      error
	started  chan struct{}
	release  chan struct{}

	mu      sync.Mutex
	calls   int
	current *trajectory.Student
}

func (f *fakeInterpreter) Interpret(ctx context.Context, instruction string, current *trajectory.Student, schema *trajectory.Schema) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.current = current
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.response, f.err
}

func TestCreateStudentHandler(t *testing.T) {
	a, store := newArchive(t)
	h := NewCreateStudentHandler(a, counterIDs(), nil)

	res, err := h.Handle(context.Background(), CreateStudentCommand{Course: "3°2° - T.M."})
	require.NoError(t, err)
	assert.Equal(t, "id-101", res.Student.ID)
	assert.Equal(t, trajectory.DefaultFullName, res.Student.FullName)
	assert.Equal(t, "3°2° - T.M.", res.Student.Course)
	assert.Len(t, a.Snapshot(), 2)
	assert.Equal(t, 2, store.Saves())
}

func TestUpdateSubjectHandler(t *testing.T) {
	a, _ := newArchive(t)
	h := NewUpdateSubjectHandler(a)

	mark := trajectory.SubjectMark{C1: trajectory.InProgressGrade()}
	res, err := h.Handle(context.Background(), UpdateSubjectCommand{
		StudentID: "1", Year: 1, SubjectKey: "historia", Mark: mark,
	})
	require.NoError(t, err)
	assert.Equal(t, mark, res.Student.Trajectory[1]["historia"])

	_, err = h.Handle(context.Background(), UpdateSubjectCommand{StudentID: "1", Year: 0, SubjectKey: "historia"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), UpdateSubjectCommand{StudentID: "nope", Year: 1, SubjectKey: "historia"})
	assert.True(t, shared.IsNotFound(err))
}

func TestUpdateHeaderHandler(t *testing.T) {
	a, _ := newArchive(t)
	h := NewUpdateHeaderHandler(a)

	res, err := h.Handle(context.Background(), UpdateHeaderCommand{StudentID: "1", Field: trajectory.FieldDNI, Value: "99.999.999"})
	require.NoError(t, err)
	assert.Equal(t, "99.999.999", res.Student.DNI)

	_, err = h.Handle(context.Background(), UpdateHeaderCommand{StudentID: "1", Field: "trajectory", Value: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidHeaderField)
}

func TestDeleteStudentHandler(t *testing.T) {
	a, store := newArchive(t)
	h := NewDeleteStudentHandler(a, nil)

	res, err := h.Handle(context.Background(), DeleteStudentCommand{StudentID: "nope"})
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, 1, store.Saves())

	res, err = h.Handle(context.Background(), DeleteStudentCommand{StudentID: "1"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Empty(t, a.Snapshot())
}

func TestImportStudentsHandler(t *testing.T) {
	a, _ := newArchive(t)
	h := NewImportStudentsHandler(a, importer.NewRosterParser(), counterIDs(), nil)

	res, err := h.Handle(context.Background(), ImportStudentsCommand{
		Text:   "40.000.001 acosta brenda\n40.000.002\n",
		Course: "2°1° - T.T.",
	})
	require.NoError(t, err)
	require.Len(t, res.Students, 2)
	assert.Equal(t, "ACOSTA BRENDA", res.Students[0].FullName)
	assert.Equal(t, trajectory.UnnamedFullName, res.Students[1].FullName)
	assert.NotEqual(t, res.Students[0].ID, res.Students[1].ID)
	assert.Len(t, a.Snapshot(), 3)

	none, err := h.Handle(context.Background(), ImportStudentsCommand{Text: "  \n"})
	require.NoError(t, err)
	assert.Empty(t, none.Students)
	assert.Len(t, a.Snapshot(), 3)
}

func TestInterpretHandler_AppliesToMatchedStudent(t *testing.T) {
	a, _ := newArchive(t)
	interp := &fakeInterpreter{response: []byte(`{
		"id": "something-else",
		"dni": "50.828.593",
		"fullName": "MANQUILLAN ARÒM IGNACIO",
		"course": "1°2° - T.T.",
		"shift": "",
		"trajectory": {"1": {"historia": {"c1": "E/C", "c2": "", "rec": "", "closure": {"date": "", "approved": ""}}}}
	}`)}
	h := NewInterpretHandler(a, interp, counterIDs(), nil)

	res, err := h.Handle(context.Background(), InterpretCommand{Instruction: "Ponle E/C en Historia de 1er año", StudentID: "1"})
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.False(t, res.Inserted)
	assert.Empty(t, res.Instruction)
	assert.Equal(t, "1", res.Student.ID)

	snap := a.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Trajectory[1]["historia"].C1.IsInProgress())
	require.NotNil(t, interp.current)
	assert.Equal(t, "1", interp.current.ID)
}

func TestInterpretHandler_InsertsUnmatched(t *testing.T) {
	a, _ := newArchive(t)
	interp := &fakeInterpreter{response: []byte(`{"id":"1x","dni":"11.111.111","fullName":"NUEVA PERSONA","course":"","shift":"","trajectory":{}}`)}
	h := NewInterpretHandler(a, interp, counterIDs(), nil)

	res, err := h.Handle(context.Background(), InterpretCommand{Instruction: "Creá a NUEVA PERSONA con DNI 11.111.111"})
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.True(t, res.Inserted)
	assert.Equal(t, "id-101", res.Student.ID)
	assert.Len(t, a.Snapshot(), 2)
	assert.Nil(t, interp.current)
}

func TestInterpretHandler_FailureIsNoUpdate(t *testing.T) {
	tests := []struct {
		name   string
		interp *fakeInterpreter
	}{
		{"transport error", &fakeInterpreter{err: errors.New("connection reset")}},
		{"not json", &fakeInterpreter{response: []byte("No entendí la instrucción")}},
		{"grade outside enumeration", &fakeInterpreter{response: []byte(`{"fullName":"X","dni":"50.828.593","trajectory":{"1":{"historia":{"c1":"4"}}}}`)}},
		{"missing trajectory", &fakeInterpreter{response: []byte(`{"fullName":"X","dni":"50.828.593"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, store := newArchive(t)
			before := a.Snapshot()
			h := NewInterpretHandler(a, tt.interp, counterIDs(), nil)

			res, err := h.Handle(context.Background(), InterpretCommand{Instruction: "algo", StudentID: "1"})
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.Equal(t, "algo", res.Instruction)
			assert.NotEmpty(t, res.Reason)
			assert.Equal(t, before, a.Snapshot())
			assert.Equal(t, 1, store.Saves())
			assert.False(t, h.Busy())
		})
	}
}

func TestInterpretHandler_OneOutstandingCall(t *testing.T) {
	a, _ := newArchive(t)
	interp := &fakeInterpreter{
		err:     errors.New("timeout"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := NewInterpretHandler(a, interp, counterIDs(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.Handle(context.Background(), InterpretCommand{Instruction: "primera"})
	}()

	<-interp.started
	assert.True(t, h.Busy())

	_, err := h.Handle(context.Background(), InterpretCommand{Instruction: "segunda"})
	assert.ErrorIs(t, err, shared.ErrInterpreterBusy)
	assert.True(t, shared.IsBusy(err))

	close(interp.release)
	<-done
	assert.False(t, h.Busy())
	assert.Equal(t, 1, interp.calls)
}

func TestInterpretHandler_Validation(t *testing.T) {
	a, _ := newArchive(t)

	h := NewInterpretHandler(a, &fakeInterpreter{}, nil, nil)
	_, err := h.Handle(context.Background(), InterpretCommand{Instruction: "   "})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), InterpretCommand{Instruction: "x", StudentID: "missing"})
	assert.True(t, shared.IsNotFound(err))

	disabled := NewInterpretHandler(a, nil, nil, nil)
	_, err = disabled.Handle(context.Background(), InterpretCommand{Instruction: "x"})
	assert.ErrorIs(t, err, shared.ErrInterpreterDisabled)
}
