package trajectory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
)

func TestDefaultSchema(t *testing.T) {
	schema := DefaultSchema()

	assert.Equal(t, []SchoolYear{1, 2, 3, 4, 5}, schema.Years())
	assert.Len(t, schema.Subjects(1), 5)
	assert.Len(t, schema.Subjects(5), 2)
	assert.Nil(t, schema.Subjects(6))

	for _, y := range schema.Years() {
		subjects := schema.Subjects(y)
		assert.Equal(t, AreaKey, subjects[len(subjects)-1].Key, "year %d", y)
	}

	label, ok := schema.Label(2, "teys")
	assert.True(t, ok)
	assert.Equal(t, "T.E.yS.", label)
	assert.False(t, schema.Has(5, "historia"))
}

func TestSchema_MarshalJSONKeepsOrder(t *testing.T) {
	data, err := json.Marshal(DefaultSchema())
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, `{"1":{"historia":"HISTORIA","geografia":"GEOGRAFÍA","tfpyc":"T.F.P.yC.","tcs":"T.C.S.","notaArea":"NOTA DE ÁREA"}`))
	assert.True(t, strings.HasSuffix(s, `"5":{"eicsyh":"E.I.C.S.yH.","notaArea":"NOTA DE ÁREA"}}`))
	assert.True(t, json.Valid(data))
}

func TestParseSchoolYear(t *testing.T) {
	y, err := ParseSchoolYear(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, SchoolYear(3), y)
	assert.Equal(t, "3° Año", y.Label())

	_, err = ParseSchoolYear("0")
	assert.ErrorIs(t, err, shared.ErrInvalidYear)

	_, err = ParseSchoolYear("tres")
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestTrajectory_JSON(t *testing.T) {
	var s Student
	raw := `{"id":"1","dni":"","fullName":"A","course":"","shift":"","trajectory":{"2":{"historia":{"c1":"7","c2":"","rec":"","closure":{"date":"","approved":""}}},"foo":{}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Len(t, s.Trajectory, 1)
	assert.True(t, s.Trajectory[2]["historia"].C1.IsPassing())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"trajectory":{"2":{"historia":`)
}

func TestTrajectory_Normalize(t *testing.T) {
	schema := DefaultSchema()
	full := NewTrajectory(schema)
	partial := Trajectory{1: {"historia": {C1: ParseGrade("E/C")}, "musica": {}}}

	got := partial.Normalize(schema)
	assert.Len(t, got, 5)
	assert.Len(t, got[1], 6)
	assert.True(t, got[1]["historia"].C1.IsInProgress())
	assert.Len(t, partial[1], 2)

	again := full.Normalize(schema)
	assert.Equal(t, full, again)
}

func TestCourseOptions(t *testing.T) {
	opts := CourseOptions()
	assert.Len(t, opts, 30)
	assert.Equal(t, "1°1° - T.M.", opts[0])
	assert.Equal(t, "1°1° - T.T.", opts[1])
	assert.Equal(t, "5°3° - T.T.", opts[29])
}

func TestYearFromCourse(t *testing.T) {
	y, ok := YearFromCourse("4°2° - T.M.")
	assert.True(t, ok)
	assert.Equal(t, SchoolYear(4), y)

	_, ok = YearFromCourse("sin curso")
	assert.False(t, ok)

	_, ok = YearFromCourse("7°1°")
	assert.False(t, ok)
}
