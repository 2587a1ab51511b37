package application

// form.go decodes the JSON request body into a wire Form and validates it
// before anything else runs.
//
// Validation happens at two levels:
//  1. Decoding: malformed JSON and wrong primitive types (a number where a
//     string is expected) are rejected by encoding/json.
//  2. Shape: required fields must be present. Form uses pointers for those,
//     so an explicit "" is accepted while a missing key or null is not.
//     Every string must also fit in a workbook cell.
//
// Both levels report a *ValidationError listing every offending field by its
// JSON path, e.g. "players[3].name". A wrong type does not hide missing
// fields elsewhere in the body; both are listed.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form is the wire shape of a submission.
type Form struct {
	Plan        *string `json:"plan" validate:"required,cell"`
	MatchDate   *string `json:"match_date" validate:"required,cell"`
	KickoffTime *string `json:"kickoff_time" validate:"required,cell"`
	Location    *string `json:"location" validate:"required,cell"`
	HomeTeam    *string `json:"home_team" validate:"required,cell"`
	AwayTeam    *string `json:"away_team" validate:"required,cell"`

	RepresentativeName    *string `json:"representative_name" validate:"omitempty,cell"`
	RepresentativeContact *string `json:"representative_contact" validate:"omitempty,cell"`

	VideoURL1 *string `json:"video_url_1" validate:"required,cell"`
	VideoURL2 *string `json:"video_url_2" validate:"omitempty,cell"`

	Formation *string `json:"formation" validate:"required,cell"`

	Players     []PlayerForm `json:"players" validate:"dive"`
	Substitutes []PlayerForm `json:"substitutes" validate:"dive"`
}

// PlayerForm is the wire shape of a roster entry.
type PlayerForm struct {
	Name     *string `json:"name" validate:"required,cell"`
	Position *string `json:"position" validate:"required,cell"`
	Number   *string `json:"number" validate:"required,cell"`
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request body does not match Form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid application: " + strings.Join(parts, "; ")
}

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("celltext", func(fl validator.FieldLevel) bool {
		return ValidCellText(fl.Field().String())
	})
	v.RegisterAlias("cell", "max="+strconv.Itoa(MaxCellChars)+",celltext")
	return v
}

// Decode reads one JSON object from r and returns the validated Application.
// Unknown fields are ignored.
func Decode(r io.Reader) (*Application, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, decodeError(err)
	}

	var form Form
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&form); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, decodeError(err)
		}
		return nil, typeError(data, typeErr, &form)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, bodyError("unexpected data after JSON object")
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}

	app := form.Application()
	return &app, nil
}

// Validate checks required fields, including every roster entry.
func (f *Form) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate application: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: ruleMessage(fe.ActualTag(), fe.Param()),
		})
	}
	return out
}

// Application converts a validated Form to the domain type. Absent optional
// strings become "" and absent lists become empty.
func (f *Form) Application() Application {
	return Application{
		Plan:                  value(f.Plan),
		MatchDate:             value(f.MatchDate),
		KickoffTime:           value(f.KickoffTime),
		Location:              value(f.Location),
		HomeTeam:              value(f.HomeTeam),
		AwayTeam:              value(f.AwayTeam),
		RepresentativeName:    value(f.RepresentativeName),
		RepresentativeContact: value(f.RepresentativeContact),
		VideoURL1:             value(f.VideoURL1),
		VideoURL2:             value(f.VideoURL2),
		Formation:             value(f.Formation),
		Players:               players(f.Players),
		Substitutes:           players(f.Substitutes),
	}
}

func players(forms []PlayerForm) []Player {
	out := make([]Player, len(forms))
	for i, p := range forms {
		out[i] = Player{
			Name:     value(p.Name),
			Position: value(p.Position),
			Number:   value(p.Number),
		}
	}
	return out
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// fieldPath drops the root struct name: "Form.players[0].name" -> "players[0].name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func ruleMessage(tag, param string) string {
	switch tag {
	case "required":
		return "field required"
	case "max":
		return "must be at most " + param + " characters"
	case "celltext":
		return "contains control characters"
	default:
		return "failed " + tag + " rule"
	}
}

func bodyError(msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: "body", Message: msg}}}
}

// decodeError maps encoding/json and body read failures to a ValidationError.
func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		sizeErr   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, io.EOF):
		return bodyError("request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return bodyError("request body is truncated JSON")
	case errors.As(err, &sizeErr):
		return bodyError(fmt.Sprintf("request body exceeds %d bytes", sizeErr.Limit))
	case errors.As(err, &syntaxErr):
		return bodyError(fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset))
	default:
		return bodyError(err.Error())
	}
}

// typeError reports the first wrongly typed value by its indexed path, then
// every shape failure in the rest of the partially decoded form.
func typeError(data []byte, typeErr *json.UnmarshalTypeError, form *Form) error {
	field := pathAt(data, typeErr.Offset)
	out := &ValidationError{Fields: []FieldError{{
		Field:   field,
		Message: fmt.Sprintf("expected %s, got %s", jsonKind(typeErr.Type), typeErr.Value),
	}}}
	if field == "body" {
		return out
	}

	var verr *ValidationError
	if errors.As(form.Validate(), &verr) {
		for _, fe := range verr.Fields {
			if fe.Field != field {
				out.Fields = append(out.Fields, fe)
			}
		}
	}
	return out
}

// pathFrame is one open object or array while walking tokens.
type pathFrame struct {
	array   bool
	index   int
	key     string
	wantKey bool
}

// pathAt returns the JSON path of the value that ends at offset in data,
// e.g. "players[2].number". It returns "body" for the top-level value.
func pathAt(data []byte, offset int64) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	var stack []pathFrame

	for dec.InputOffset() < offset {
		tok, err := dec.Token()
		if err != nil {
			break
		}

		var top *pathFrame
		if n := len(stack); n > 0 {
			top = &stack[n-1]
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			if n := len(stack); n > 0 && !stack[n-1].array {
				stack[n-1].wantKey = true
			}
			continue
		}

		if top != nil && !top.array && top.wantKey {
			top.key, _ = tok.(string)
			top.wantKey = false
			continue
		}
		if top != nil && top.array {
			top.index++
		}

		switch tok {
		case json.Delim('{'):
			stack = append(stack, pathFrame{wantKey: true})
		case json.Delim('['):
			stack = append(stack, pathFrame{array: true, index: -1})
		default:
			if top != nil && !top.array {
				top.wantKey = true
			}
		}
	}

	return framePath(stack)
}

func framePath(stack []pathFrame) string {
	var b strings.Builder
	for _, f := range stack {
		switch {
		case f.array && f.index >= 0:
			b.WriteString("[" + strconv.Itoa(f.index) + "]")
		case !f.array && f.key != "":
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(f.key)
		}
	}
	if b.Len() == 0 {
		return "body"
	}
	return b.String()
}

// jsonKind names a Go type the way a JSON client thinks about it.
func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Bool:
		return "boolean"
	default:
		return "number"
	}
}
