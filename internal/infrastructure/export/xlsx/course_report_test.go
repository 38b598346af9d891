package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/archivo-trayectoria/trayectoria/internal/application/query"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

func sampleReport() *query.CourseReportDTO {
	pending := query.GradeCellDTO{Value: "E/C", Tone: trajectory.TonePending}
	passing := query.GradeCellDTO{Value: "8", Tone: trajectory.TonePassing}
	empty := query.GradeCellDTO{Tone: trajectory.ToneEmpty}

	return &query.CourseReportDTO{
		Course:    "5°1° - T.M.",
		Year:      5,
		YearLabel: "5° Año",
		Columns: []query.ReportColumnDTO{
			{Key: "eicsyh", Label: "E.I.C.S.yH.", ThirdCell: "REC"},
			{Key: trajectory.AreaKey, Label: "NOTA DE ÁREA", ThirdCell: "FINAL"},
		},
		Rows: []query.ReportRowDTO{
			{
				StudentID: "a", DNI: "100", FullName: "ÁLVAREZ ANA",
				Marks:   []query.ReportMarkDTO{{C1: passing, C2: passing, Rec: empty}, {Rec: passing}},
				Pending: []string{},
			},
			{
				StudentID: "z", DNI: "300", FullName: "ZAPATA LUIS",
				Marks:    []query.ReportMarkDTO{{C1: pending, C2: empty, Rec: empty}, {}},
				Pending:  []string{"HISTORIA (1°)", "E.I.C.S.yH."},
				HasDebts: true,
			},
		},
		Total: 2,
	}
}

func TestCourseReportExporter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCourseReportExporter().Write(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	get := func(cell string) string {
		v, err := f.GetCellValue(SheetName, cell)
		require.NoError(t, err)
		return v
	}

	// header: 3 fixed columns, 2 subjects of 3 cells, pending column J
	assert.Contains(t, get("A1"), "5°1° - T.M.")
	assert.Equal(t, "APELLIDO Y NOMBRE", get("C2"))
	assert.Equal(t, "E.I.C.S.yH.", get("D2"))
	assert.Equal(t, "NOTA DE ÁREA", get("G2"))
	assert.Equal(t, "1°C", get("D3"))
	assert.Equal(t, "REC", get("F3"))
	assert.Equal(t, "FINAL", get("I3"))
	assert.Equal(t, pendingHeader, get("J2"))

	// rows
	assert.Equal(t, "1", get("A4"))
	assert.Equal(t, "ÁLVAREZ ANA", get("C4"))
	assert.Equal(t, "8", get("D4"))
	assert.Equal(t, "8", get("I4"))
	assert.Equal(t, "Sin Deudas", get("J4"))

	assert.Equal(t, "ZAPATA LUIS", get("C5"))
	assert.Equal(t, "E/C", get("D5"))
	assert.Equal(t, "", get("E5"))
	assert.Equal(t, "HISTORIA (1°), E.I.C.S.yH.", get("J5"))

	merged, err := f.GetMergeCells(SheetName)
	require.NoError(t, err)
	var ranges []string
	for _, m := range merged {
		ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	assert.Contains(t, ranges, "D2:F2")
	assert.Contains(t, ranges, "G2:I2")
	assert.Contains(t, ranges, "J2:J3")

	pendingStyle, err := f.GetCellStyle(SheetName, "D5")
	require.NoError(t, err)
	passingStyle, err := f.GetCellStyle(SheetName, "D4")
	require.NoError(t, err)
	debtsStyle, err := f.GetCellStyle(SheetName, "J5")
	require.NoError(t, err)
	assert.NotEqual(t, pendingStyle, passingStyle)
	assert.Equal(t, pendingStyle, debtsStyle)
}

func TestCourseReportExporter_EmptyCourse(t *testing.T) {
	report := sampleReport()
	report.Rows = []query.ReportRowDTO{}
	report.Total = 0

	f, err := NewCourseReportExporter().Export(report)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = NewCourseReportExporter().Export(nil)
	assert.Error(t, err)
}

func TestCourseReportExporter_Filename(t *testing.T) {
	name := NewCourseReportExporter().Filename(sampleReport())
	assert.Equal(t, "planilla_51-TM_anio5.xlsx", name)
}
