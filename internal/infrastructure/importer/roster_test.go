package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

func TestRosterParser_Parse(t *testing.T) {
	text := "50.111.222 pérez juan carlos\n\n   \n\t48.000.001\tnúñez   maría \r\n33.444.555\n"

	rows := NewRosterParser().Parse(text, "2°3° - T.T.")
	require.Len(t, rows, 3)

	assert.Equal(t, "50.111.222", rows[0].DNI)
	assert.Equal(t, "PÉREZ JUAN CARLOS", rows[0].FullName)
	assert.Equal(t, "2°3° - T.T.", rows[0].Course)

	assert.Equal(t, "48.000.001", rows[1].DNI)
	assert.Equal(t, "NÚÑEZ MARÍA", rows[1].FullName)

	assert.Equal(t, "33.444.555", rows[2].DNI)
	assert.Equal(t, trajectory.UnnamedFullName, rows[2].FullName)

	for _, r := range rows {
		assert.Empty(t, r.ID)
	}
}

func TestRosterParser_DefaultCourse(t *testing.T) {
	rows := NewRosterParser().Parse("1 ana", "")
	require.Len(t, rows, 1)
	assert.Equal(t, trajectory.DefaultCourse, rows[0].Course)
}

func TestRosterParser_Empty(t *testing.T) {
	assert.Empty(t, NewRosterParser().Parse("\n \n", "1°1° - T.M."))
}
