package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/archivo-trayectoria/trayectoria/internal/application/command"
	"github.com/archivo-trayectoria/trayectoria/internal/application/query"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/export/xlsx"
	"github.com/archivo-trayectoria/trayectoria/pkg/logger"
)

// Feature names checked by the handlers. They match config's flag names.
const (
	featureInterpreter = "interpreter.enabled"
	featureReportXLSX  = "report.xlsx_export"
	featureBulkImport  = "students.bulk_import"
)

func (s *Server) featureEnabled(name string) bool {
	return s.deps.Features == nil || s.deps.Features.IsEnabled(name)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":        "Archivo de Trayectorias API",
		"version":     s.config.Version,
		"description": "Trayectoria escolar, materias adeudadas y planillas por curso",
		"endpoints": map[string]string{
			"health":   "/health",
			"schema":   "/api/v1/schema",
			"students": "/api/v1/students",
			"commands": "/api/v1/commands",
			"courses":  "/api/v1/courses",
			"report":   "/api/v1/courses/report",
		},
	}

	writeJSON(w, r, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEMA HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSchema handles GET /api/v1/schema. Subject order within each year
// is preserved.
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	schema := s.deps.Schema
	if schema == nil {
		schema = trajectory.DefaultSchema()
	}

	writeJSON(w, r, http.StatusOK, schema)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/students?q=&course=
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListStudents.Handle(r.Context(), query.ListStudentsQuery{
		Search: getQueryParam(r, "q", ""),
		Course: getQueryParam(r, "course", ""),
	})
	if err != nil {
		s.writeDomainError(w, r, "list_students", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result)})
}

// handleGetStudent handles GET /api/v1/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.deps.GetStudent.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, "get_student", err)
		return
	}

	writeJSON(w, r, http.StatusOK, student)
}

// handleCreateStudent handles POST /api/v1/students
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeDomainError(w, r, "create_student", err)
			return
		}
	}

	result, err := s.deps.CreateStudent.Handle(r.Context(), command.CreateStudentCommand{Course: req.Course})
	if err != nil {
		s.writeDomainError(w, r, "create_student", err)
		return
	}

	w.Header().Set("Location", "/api/v1/students/"+result.Student.ID)
	writeJSON(w, r, http.StatusCreated, result.Student)
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.deps.DeleteStudent.Handle(r.Context(), command.DeleteStudentCommand{StudentID: id})
	if err != nil {
		s.writeDomainError(w, r, "delete_student", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "deleted": result.Deleted})
}

// handleUpdateHeader handles PATCH /api/v1/students/{id}/header
func (s *Server) handleUpdateHeader(w http.ResponseWriter, r *http.Request) {
	var req updateHeaderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, "update_header", err)
		return
	}

	result, err := s.deps.UpdateHeader.Handle(r.Context(), command.UpdateHeaderCommand{
		StudentID: r.PathValue("id"),
		Field:     trajectory.HeaderField(req.Field),
		Value:     req.Value,
	})
	if err != nil {
		s.writeDomainError(w, r, "update_header", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result.Student)
}

// handleUpdateSubject handles PUT /api/v1/students/{id}/trajectory/{year}/{subject}
func (s *Server) handleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	year, err := trajectory.ParseSchoolYear(r.PathValue("year"))
	if err != nil {
		s.writeDomainError(w, r, "update_subject", err)
		return
	}

	var req markRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, "update_subject", err)
		return
	}

	result, err := s.deps.UpdateSubject.Handle(r.Context(), command.UpdateSubjectCommand{
		StudentID:  r.PathValue("id"),
		Year:       year,
		SubjectKey: r.PathValue("subject"),
		Mark:       req.toMark(),
	})
	if err != nil {
		s.writeDomainError(w, r, "update_subject", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result.Student)
}

// handleGetPending handles GET /api/v1/students/{id}/pending?year=
func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	year, err := getQueryYear(r, "year")
	if err != nil {
		s.writeDomainError(w, r, "get_pending", err)
		return
	}

	result, err := s.deps.GetPending.Handle(r.Context(), query.GetPendingQuery{
		StudentID:   r.PathValue("id"),
		ThroughYear: year,
	})
	if err != nil {
		s.writeDomainError(w, r, "get_pending", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleImportStudents handles POST /api/v1/students/import
func (s *Server) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(featureBulkImport) {
		writeJSONError(w, r, http.StatusNotFound, "feature_disabled", "Roster import is disabled")
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, "import_students", err)
		return
	}

	result, err := s.deps.ImportStudents.Handle(r.Context(), command.ImportStudentsCommand{
		Text:   req.Text,
		Course: req.Course,
	})
	if err != nil {
		s.writeDomainError(w, r, "import_students", err)
		return
	}

	status := http.StatusCreated
	if len(result.Students) == 0 {
		status = http.StatusOK
	}
	writeJSONWithMeta(w, r, status, result.Students, &ResponseMeta{TotalCount: len(result.Students)})
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERPRETER HANDLER
// ══════════════════════════════════════════════════════════════════════════════

type interpretResponse struct {
	Applied     bool                `json:"applied"`
	Inserted    bool                `json:"inserted,omitempty"`
	Student     *trajectory.Student `json:"student,omitempty"`
	Instruction string              `json:"instruction,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}

// handleInterpret handles POST /api/v1/commands. A rejected or failed
// interpretation is still a 200: the archive is unchanged and the instruction
// comes back so the client can offer a retry.
func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(featureInterpreter) || s.deps.Interpret == nil {
		writeJSONError(w, r, http.StatusServiceUnavailable, "interpreter_disabled", "The interpreter is not configured")
		return
	}

	var req interpretRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, "interpret", err)
		return
	}

	result, err := s.deps.Interpret.Handle(r.Context(), command.InterpretCommand{
		Instruction: req.Instruction,
		StudentID:   req.StudentID,
	})
	if err != nil {
		s.writeDomainError(w, r, "interpret", err)
		return
	}

	if !result.Applied {
		logger.FromContext(r.Context()).Warn("instruction not applied", logger.String("reason", result.Reason))
	}

	writeJSON(w, r, http.StatusOK, interpretResponse{
		Applied:     result.Applied,
		Inserted:    result.Inserted,
		Student:     result.Student,
		Instruction: result.Instruction,
		Reason:      result.Reason,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListCourses handles GET /api/v1/courses
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListCourses.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list_courses", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result.Available, &ResponseMeta{TotalCount: len(result.Available)})
}

// handleCourseOptions handles GET /api/v1/courses/options
func (s *Server) handleCourseOptions(w http.ResponseWriter, r *http.Request) {
	options := trajectory.CourseOptions()
	writeJSONWithMeta(w, r, http.StatusOK, options, &ResponseMeta{TotalCount: len(options)})
}

// handleCourseReport handles GET /api/v1/courses/report?course=&year=
func (s *Server) handleCourseReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.courseReport(w, r)
	if !ok {
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, report, &ResponseMeta{TotalCount: report.Total})
}

// handleCourseReportXLSX handles GET /api/v1/courses/report.xlsx?course=&year=
func (s *Server) handleCourseReportXLSX(w http.ResponseWriter, r *http.Request) {
	if !s.featureEnabled(featureReportXLSX) || s.deps.Exporter == nil {
		writeJSONError(w, r, http.StatusNotFound, "feature_disabled", "Spreadsheet export is disabled")
		return
	}

	report, ok := s.courseReport(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Exporter.Write(&buf, report); err != nil {
		s.writeDomainError(w, r, "export_course_report", err)
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.deps.Exporter.Filename(report)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// courseReport runs the report query and writes the error response itself
// when it fails.
func (s *Server) courseReport(w http.ResponseWriter, r *http.Request) (*query.CourseReportDTO, bool) {
	year, err := getQueryYear(r, "year")
	if err != nil {
		s.writeDomainError(w, r, "course_report", err)
		return nil, false
	}

	report, err := s.deps.CourseReport.Handle(r.Context(), query.GetCourseReportQuery{
		Course: getQueryParam(r, "course", ""),
		Year:   year,
	})
	if err != nil {
		s.writeDomainError(w, r, "course_report", err)
		return nil, false
	}
	return report, true
}
