package trajectory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
)

// custom validation tags
const (
	notBlankTag  = "notblank"
	gradeTag     = "grade"
	approvalTag  = "approval"
	schemaKeyTag = "schema_key"
)

// candidateDocument is the wire shape of a record produced outside the
// editor, typically by the interpreter.
type candidateDocument struct {
	ID         string                              `json:"id"`
	DNI        string                              `json:"dni"`
	FullName   string                              `json:"fullName" validate:"notblank"`
	Course     string                              `json:"course"`
	Shift      string                              `json:"shift"`
	Trajectory map[string]map[string]candidateMark `json:"trajectory" validate:"required"`
}

type candidateMark struct {
	C1      string           `json:"c1" validate:"grade"`
	C2      string           `json:"c2" validate:"grade"`
	Rec     string           `json:"rec" validate:"grade"`
	Closure candidateClosure `json:"closure"`
}

type candidateClosure struct {
	Date     string `json:"date"`
	Approved string `json:"approved" validate:"approval"`
}

// CandidateAdmitter decodes and strictly validates candidate records before
// they are allowed to reach Reconcile. Grades must be one of "", "E/C" or
// 7..10, approvals one of "", "SI" or "E/C", and every year and subject key
// must exist in the schema.
type CandidateAdmitter struct {
	schema     *Schema
	validate   *validator.Validate
	translator ut.Translator
}

// NewCandidateAdmitter creates an admitter bound to schema.
func NewCandidateAdmitter(schema *Schema) *CandidateAdmitter {
	v := validator.New()

	// Register the spanish error messages for validation errors.
	_es := es.New()
	uni := ut.New(_es, _es)
	trans, _ := uni.GetTranslator("es")
	_ = es_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlankValidation)
	_ = v.RegisterValidation(gradeTag, gradeValidation)
	_ = v.RegisterValidation(approvalTag, approvalValidation)

	a := &CandidateAdmitter{schema: schema, validate: v, translator: trans}
	v.RegisterStructValidation(a.documentStructValidation, candidateDocument{})

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, gradeTag, approvalTag, schemaKeyTag} {
		_ = v.RegisterTranslation(tag, trans, registerFn, translateCustomValidationErrs)
	}
	return a
}

// Admit decodes raw as a student record and validates it. Unknown fields,
// out-of-enumeration values and keys outside the schema are rejected with an
// error wrapping shared.ErrInvalidCandidate. The returned student has every
// schema slot populated.
func (a *CandidateAdmitter) Admit(raw []byte) (Student, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(raw)))
	dec.DisallowUnknownFields()

	var doc candidateDocument
	if err := dec.Decode(&doc); err != nil {
		return Student{}, fmt.Errorf("%w: decode: %v", shared.ErrInvalidCandidate, err)
	}
	if dec.More() {
		return Student{}, fmt.Errorf("%w: trailing data after record", shared.ErrInvalidCandidate)
	}

	var problems []string
	if err := a.validate.Struct(doc); err != nil {
		problems = append(problems, a.messages(err)...)
	}

	years := make([]string, 0, len(doc.Trajectory))
	for y := range doc.Trajectory {
		years = append(years, y)
	}
	sort.Strings(years)
	for _, y := range years {
		keys := make([]string, 0, len(doc.Trajectory[y]))
		for k := range doc.Trajectory[y] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := a.validate.Struct(doc.Trajectory[y][k]); err != nil {
				for _, msg := range a.messages(err) {
					problems = append(problems, fmt.Sprintf("trajectory.%s.%s: %s", y, k, msg))
				}
			}
		}
	}

	if len(problems) > 0 {
		return Student{}, fmt.Errorf("%w: %s", shared.ErrInvalidCandidate, strings.Join(problems, "; "))
	}
	return a.toStudent(doc), nil
}

func (a *CandidateAdmitter) toStudent(doc candidateDocument) Student {
	t := make(Trajectory, len(doc.Trajectory))
	for yk, marks := range doc.Trajectory {
		y, err := ParseSchoolYear(yk)
		if err != nil {
			continue
		}
		rec := make(YearRecord, len(marks))
		for k, m := range marks {
			rec[k] = SubjectMark{
				C1:  ParseGrade(m.C1),
				C2:  ParseGrade(m.C2),
				Rec: ParseGrade(m.Rec),
				Closure: Closure{
					Date:     m.Closure.Date,
					Approved: ParseApproval(m.Closure.Approved),
				},
			}
		}
		t[y] = rec
	}

	return Student{
		ID:         doc.ID,
		DNI:        doc.DNI,
		FullName:   doc.FullName,
		Course:     doc.Course,
		Shift:      doc.Shift,
		Trajectory: t.Normalize(a.schema),
	}
}

func (a *CandidateAdmitter) messages(err error) []string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ves))
	for _, fe := range ves {
		out = append(out, fe.Translate(a.translator))
	}
	return out
}

// documentStructValidation checks trajectory keys against the schema.
func (a *CandidateAdmitter) documentStructValidation(sl validator.StructLevel) {
	doc, ok := sl.Current().Interface().(candidateDocument)
	if !ok {
		return
	}
	for yk, marks := range doc.Trajectory {
		y, err := ParseSchoolYear(yk)
		if err != nil || yk != y.String() || !a.schema.HasYear(y) {
			sl.ReportError(doc.Trajectory, "trajectory", "Trajectory", schemaKeyTag, yk)
			continue
		}
		for k := range marks {
			if !a.schema.Has(y, k) {
				sl.ReportError(doc.Trajectory, "trajectory", "Trajectory", schemaKeyTag, yk+"."+k)
			}
		}
	}
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func gradeValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return ParseGrade(str).IsEnumerated()
	}
	return false
}

func approvalValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return ParseApproval(str).IsEnumerated()
	}
	return false
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fmt.Sprintf("%s no puede estar vacío", fe.Field())
	case gradeTag:
		return fmt.Sprintf("%s tiene una nota inválida %q", fe.Field(), fe.Value())
	case approvalTag:
		return fmt.Sprintf("%s tiene un estado de aprobación inválido %q", fe.Field(), fe.Value())
	case schemaKeyTag:
		return fmt.Sprintf("%s contiene una clave fuera del esquema: %s", fe.Field(), fe.Param())
	default:
		return ""
	}
}
