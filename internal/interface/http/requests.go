package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type createStudentRequest struct {
	Course string `json:"course" validate:"omitempty,max=40"`
}

type updateHeaderRequest struct {
	Field string `json:"field" validate:"required,oneof=dni fullName course shift"`
	Value string `json:"value" validate:"max=120"`
}

type closureRequest struct {
	Date     string `json:"date" validate:"max=20"`
	Approved string `json:"approved" validate:"max=8"`
}

// markRequest is a full replacement mark. Cells are free text, as typed in
// the editor.
type markRequest struct {
	C1      string         `json:"c1" validate:"max=16"`
	C2      string         `json:"c2" validate:"max=16"`
	Rec     string         `json:"rec" validate:"max=16"`
	Closure closureRequest `json:"closure"`
}

func (m markRequest) toMark() trajectory.SubjectMark {
	return trajectory.SubjectMark{
		C1:  trajectory.ParseGrade(m.C1),
		C2:  trajectory.ParseGrade(m.C2),
		Rec: trajectory.ParseGrade(m.Rec),
		Closure: trajectory.Closure{
			Date:     m.Closure.Date,
			Approved: trajectory.ParseApproval(m.Closure.Approved),
		},
	}
}

type importRequest struct {
	Text   string `json:"text" validate:"required,max=200000"`
	Course string `json:"course" validate:"omitempty,max=40"`
}

type interpretRequest struct {
	Instruction string `json:"instruction" validate:"required,max=2000"`
	StudentID   string `json:"student_id" validate:"omitempty,max=64"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING AND VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// validationError is a 400 with per-field details.
type validationError struct {
	message string
	details []string
}

func (e *validationError) Error() string {
	if len(e.details) == 0 {
		return e.message
	}
	return e.message + ": " + strings.Join(e.details, "; ")
}

func newValidationError(message string, details ...string) *validationError {
	return &validationError{message: message, details: details}
}

// requestValidator validates request bodies with spanish messages.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() *requestValidator {
	v := validator.New()

	_es := es.New()
	uni := ut.New(_es, _es)
	trans, _ := uni.GetTranslator("es")
	_ = es_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &requestValidator{validate: v, translator: trans}
}

var bodyValidator = newRequestValidator()

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return newValidationError(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return newValidationError("request body is required")
		default:
			return newValidationError("invalid JSON body", err.Error())
		}
	}
	if dec.More() {
		return newValidationError("request body must contain a single JSON object")
	}

	return bodyValidator.check(dst)
}

func (v *requestValidator) check(dst any) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return newValidationError("invalid request", err.Error())
	}
	details := make([]string, 0, len(ves))
	for _, fe := range ves {
		details = append(details, fe.Translate(v.translator))
	}
	return newValidationError("invalid request", details...)
}
