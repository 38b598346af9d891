// Package xlsx renders the course grade sheet as an Excel workbook.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/archivo-trayectoria/trayectoria/internal/application/query"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

const (
	// SheetName is the only sheet of the workbook.
	SheetName = "Planilla"

	// ContentType is the MIME type of the generated file.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// Fixed columns before the subject groups: N°, DNI, name.
	fixedColumns = 3

	titleRow     = 1
	subjectRow   = 2
	cellTagRow   = 3
	firstDataRow = 4

	pendingHeader = "Materias que Adeuda"
)

// styles holds the style ids registered on one workbook.
type styles struct {
	title   int
	header  int
	body    int
	pending int
	passing int
}

// CourseReportExporter writes query.CourseReportDTO as a workbook.
type CourseReportExporter struct{}

// NewCourseReportExporter creates an exporter.
func NewCourseReportExporter() *CourseReportExporter {
	return &CourseReportExporter{}
}

// Filename suggests a download name for report.
func (e *CourseReportExporter) Filename(report *query.CourseReportDTO) string {
	course := strings.NewReplacer("°", "", " ", "", ".", "", "/", "-").Replace(report.Course)
	return fmt.Sprintf("planilla_%s_anio%d.xlsx", course, report.Year)
}

// Write renders report into w.
func (e *CourseReportExporter) Write(w io.Writer, report *query.CourseReportDTO) error {
	f, err := e.Export(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Export builds the workbook. The caller must Close it.
func (e *CourseReportExporter) Export(report *query.CourseReportDTO) (*excelize.File, error) {
	if report == nil {
		return nil, errors.New("report is nil")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}

	st, err := registerStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	lastCol := fixedColumns + 3*len(report.Columns) + 1
	if err := writeHeader(f, report, st, lastCol); err != nil {
		f.Close()
		return nil, err
	}
	for i, row := range report.Rows {
		if err := writeRow(f, firstDataRow+i, i+1, row, st, lastCol); err != nil {
			f.Close()
			return nil, err
		}
	}

	lastName, _ := excelize.ColumnNumberToName(lastCol)
	_ = f.SetColWidth(SheetName, "A", "A", 5)
	_ = f.SetColWidth(SheetName, "B", "B", 14)
	_ = f.SetColWidth(SheetName, "C", "C", 34)
	if len(report.Columns) > 0 {
		firstGrade, _ := excelize.ColumnNumberToName(fixedColumns + 1)
		lastGrade, _ := excelize.ColumnNumberToName(lastCol - 1)
		_ = f.SetColWidth(SheetName, firstGrade, lastGrade, 7)
	}
	_ = f.SetColWidth(SheetName, lastName, lastName, 40)

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze: true, XSplit: fixedColumns, YSplit: cellTagRow,
		TopLeftCell: cellName(fixedColumns+1, firstDataRow), ActivePane: "bottomRight",
	}); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func registerStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "#A0AEC0", Style: 1},
		{Type: "right", Color: "#A0AEC0", Style: 1},
		{Type: "top", Color: "#A0AEC0", Style: 1},
		{Type: "bottom", Color: "#A0AEC0", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	var st styles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 13},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return st, err
	}
	if st.body, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return st, err
	}
	if st.pending, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return st, err
	}
	if st.passing, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#006100"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return st, err
	}
	return st, nil
}

func writeHeader(f *excelize.File, report *query.CourseReportDTO, st styles, lastCol int) error {
	title := fmt.Sprintf("PLANILLA DE CALIFICACIONES · %s · %s", report.Course, report.YearLabel)
	if err := f.SetCellValue(SheetName, cellName(1, titleRow), title); err != nil {
		return err
	}
	if err := f.MergeCell(SheetName, cellName(1, titleRow), cellName(lastCol, titleRow)); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, cellName(1, titleRow), cellName(lastCol, titleRow), st.title); err != nil {
		return err
	}

	for i, h := range []string{"N°", "DNI", "APELLIDO Y NOMBRE"} {
		col := i + 1
		if err := f.SetCellValue(SheetName, cellName(col, subjectRow), h); err != nil {
			return err
		}
		if err := f.MergeCell(SheetName, cellName(col, subjectRow), cellName(col, cellTagRow)); err != nil {
			return err
		}
	}

	for i, c := range report.Columns {
		first := fixedColumns + 1 + 3*i
		if err := f.SetCellValue(SheetName, cellName(first, subjectRow), c.Label); err != nil {
			return err
		}
		if err := f.MergeCell(SheetName, cellName(first, subjectRow), cellName(first+2, subjectRow)); err != nil {
			return err
		}
		for j, tag := range []string{"1°C", "2°C", c.ThirdCell} {
			if err := f.SetCellValue(SheetName, cellName(first+j, cellTagRow), tag); err != nil {
				return err
			}
		}
	}

	if err := f.SetCellValue(SheetName, cellName(lastCol, subjectRow), pendingHeader); err != nil {
		return err
	}
	if err := f.MergeCell(SheetName, cellName(lastCol, subjectRow), cellName(lastCol, cellTagRow)); err != nil {
		return err
	}

	return f.SetCellStyle(SheetName, cellName(1, subjectRow), cellName(lastCol, cellTagRow), st.header)
}

func writeRow(f *excelize.File, rowNum, ordinal int, row query.ReportRowDTO, st styles, lastCol int) error {
	if err := f.SetSheetRow(SheetName, cellName(1, rowNum), &[]any{ordinal, row.DNI, row.FullName}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, cellName(1, rowNum), cellName(lastCol, rowNum), st.body); err != nil {
		return err
	}

	col := fixedColumns + 1
	for _, m := range row.Marks {
		for _, g := range []query.GradeCellDTO{m.C1, m.C2, m.Rec} {
			if err := writeGrade(f, cellName(col, rowNum), g, st); err != nil {
				return err
			}
			col++
		}
	}

	pending := "Sin Deudas"
	if row.HasDebts {
		pending = strings.Join(row.Pending, ", ")
	}
	if err := f.SetCellValue(SheetName, cellName(lastCol, rowNum), pending); err != nil {
		return err
	}
	if row.HasDebts {
		return f.SetCellStyle(SheetName, cellName(lastCol, rowNum), cellName(lastCol, rowNum), st.pending)
	}
	return nil
}

// writeGrade keeps grades as text so "E/C" and "7" round-trip identically.
func writeGrade(f *excelize.File, cell string, g query.GradeCellDTO, st styles) error {
	if g.Value != "" {
		if err := f.SetCellStr(SheetName, cell, g.Value); err != nil {
			return err
		}
	}
	switch g.Tone {
	case trajectory.TonePending:
		return f.SetCellStyle(SheetName, cell, cell, st.pending)
	case trajectory.TonePassing:
		return f.SetCellStyle(SheetName, cell, cell, st.passing)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
