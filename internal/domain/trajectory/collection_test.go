package trajectory

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
)

func sequentialIDs(prefix string) IDGenerator {
	n := 0
	return IDGeneratorFunc(func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	})
}

func sampleCollection() Collection {
	schema := DefaultSchema()
	return Collection{
		{ID: "a", DNI: "111", FullName: "ZAPATA LUIS", Course: "1°2° - T.T.", Trajectory: NewTrajectory(schema)},
		{ID: "b", DNI: "222", FullName: "ÁLVAREZ ANA", Course: "1°2° - T.T.", Trajectory: NewTrajectory(schema)},
		{ID: "c", DNI: "333", FullName: "BENÍTEZ CARLA", Course: "3°1° - T.M.", Trajectory: NewTrajectory(schema)},
	}
}

func TestCollection_UpdateSubject(t *testing.T) {
	orig := sampleCollection()
	mark := SubjectMark{C1: ParseGrade("E/C")}

	updated, err := orig.UpdateSubject("b", 1, "historia", mark)
	require.NoError(t, err)

	got, ok := updated.Find("b")
	require.True(t, ok)
	assert.Equal(t, mark, got.Trajectory[1]["historia"])

	// the original snapshot is untouched
	before, _ := orig.Find("b")
	assert.True(t, before.Trajectory[1]["historia"].IsEmpty())

	// untouched years and students are shared
	assert.Equal(t, reflect.ValueOf(before.Trajectory[2]).Pointer(), reflect.ValueOf(got.Trajectory[2]).Pointer())
	assert.Equal(t, reflect.ValueOf(orig[0].Trajectory).Pointer(), reflect.ValueOf(updated[0].Trajectory).Pointer())
}

func TestCollection_UpdateSubject_Idempotent(t *testing.T) {
	orig := sampleCollection()
	current := orig[0].Trajectory.Mark(2, "geografia")

	updated, err := orig.UpdateSubject("a", 2, "geografia", current)
	require.NoError(t, err)
	assert.Equal(t, orig, updated)
}

func TestCollection_UpdateSubject_Errors(t *testing.T) {
	orig := sampleCollection()

	_, err := orig.UpdateSubject("missing", 1, "historia", SubjectMark{})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
	assert.True(t, shared.IsNotFound(err))

	_, err = orig.UpdateSubject("a", 6, "historia", SubjectMark{})
	assert.ErrorIs(t, err, shared.ErrInvalidYear)
}

func TestCollection_UpdateSubject_StrayKey(t *testing.T) {
	updated, err := sampleCollection().UpdateSubject("a", 1, "musica", SubjectMark{C1: ParseGrade("9")})
	require.NoError(t, err)
	assert.Equal(t, "9", updated[0].Trajectory[1]["musica"].C1.String())
}

func TestCollection_UpdateHeaderField(t *testing.T) {
	orig := sampleCollection()

	updated, err := orig.UpdateHeaderField("c", FieldFullName, "BENÍTEZ CARLA SOFÍA")
	require.NoError(t, err)
	assert.Equal(t, "BENÍTEZ CARLA SOFÍA", updated[2].FullName)
	assert.Equal(t, "BENÍTEZ CARLA", orig[2].FullName)

	updated, err = updated.UpdateHeaderField("c", FieldShift, "T.M.")
	require.NoError(t, err)
	assert.Equal(t, "T.M.", updated[2].Shift)

	_, err = orig.UpdateHeaderField("c", HeaderField("id"), "zzz")
	assert.ErrorIs(t, err, shared.ErrInvalidHeaderField)
	assert.True(t, shared.IsValidation(err))
}

func TestCollection_CreateAndDelete(t *testing.T) {
	schema := DefaultSchema()
	orig := sampleCollection()

	added, s, err := orig.CreateStudent("", schema, sequentialIDs("n"))
	require.NoError(t, err)
	assert.Len(t, added, 4)
	assert.Equal(t, "n1", s.ID)
	assert.Equal(t, DefaultFullName, s.FullName)
	assert.Equal(t, DefaultCourse, s.Course)
	assert.Empty(t, s.DNI)
	assert.Len(t, s.Trajectory, 5)
	assert.Len(t, s.Trajectory[1], 5)

	removed, ok := added.Delete("a")
	assert.True(t, ok)
	assert.Len(t, removed, 3)
	assert.False(t, removed.HasID("a"))
	assert.Len(t, added, 4)

	same, ok := removed.Delete("a")
	assert.False(t, ok)
	assert.Equal(t, removed, same)
}

func TestCollection_CreateStudent_SkipsUsedIDs(t *testing.T) {
	ids := []string{"a", "b", "fresh"}
	gen := IDGeneratorFunc(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	})

	_, s, err := sampleCollection().CreateStudent("2°1° - T.M.", DefaultSchema(), gen)
	require.NoError(t, err)
	assert.Equal(t, "fresh", s.ID)
	assert.Equal(t, "2°1° - T.M.", s.Course)
}

func TestCollection_Search(t *testing.T) {
	c := sampleCollection()

	all := c.Search("")
	require.Len(t, all, 3)
	assert.Equal(t, []string{"ÁLVAREZ ANA", "BENÍTEZ CARLA", "ZAPATA LUIS"},
		[]string{all[0].FullName, all[1].FullName, all[2].FullName})

	byName := c.Search("carla")
	require.Len(t, byName, 1)
	assert.Equal(t, "c", byName[0].ID)

	byDNI := c.Search("22")
	require.Len(t, byDNI, 1)
	assert.Equal(t, "b", byDNI[0].ID)

	assert.Empty(t, c.Search("nadie"))
}

func TestCollection_Courses(t *testing.T) {
	c := sampleCollection().Add(Student{ID: "d", Course: ""})
	assert.Equal(t, []string{"1°2° - T.T.", "3°1° - T.M."}, c.Courses())

	inCourse := c.InCourse("1°2° - T.T.")
	require.Len(t, inCourse, 2)
	assert.Equal(t, "b", inCourse[0].ID)
	assert.Equal(t, "a", inCourse[1].ID)
}

func TestStudent_Clone(t *testing.T) {
	s := sampleCollection()[0]
	cp := s.Clone()
	cp.Trajectory[1]["historia"] = SubjectMark{C1: ParseGrade("E/C")}

	assert.True(t, s.Trajectory[1]["historia"].IsEmpty())
}
