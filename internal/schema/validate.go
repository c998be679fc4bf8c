package schema

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/totegamma/eform-core/internal/domain"
)

const (
	simpleTextMaxLength = 255

	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
	datetimeLayout = "2006-01-02 15:04:05"
)

const validMessage = "Data is valid"

var validate = validator.New()

// Result is the verdict of ControlData. Errors lists every failure in
// evaluation order and Message joins them.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// ControlData checks payload against s. Keys unknown to the schema are ignored.
func ControlData(payload map[string]any, s Schema) Result {
	var errs []string

	var missing []string
	for _, slug := range s.RequiredFields() {
		if _, ok := payload[slug]; !ok {
			missing = append(missing, slug)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, "Missing required fields: "+strings.Join(missing, ", "))
	}

	kinds := s.TypeOf()
	allowed := s.AllowedValues()
	for _, slug := range s.AllFields() {
		value, ok := payload[slug]
		if !ok {
			continue
		}
		if msg, ok := ControlField(slug, value, kinds[slug], allowed[slug]); !ok {
			errs = append(errs, msg)
		}
	}

	if len(errs) > 0 {
		return Result{
			Success: false,
			Message: strings.Join(errs, "; "),
			Errors:  errs,
		}
	}

	return Result{Success: true, Message: validMessage}
}

// ControlField checks a single value against kind. allowed is only read for select fields.
func ControlField(slug string, value any, kind domain.FieldKind, allowed []string) (string, bool) {
	prefix := "the field " + slug

	switch kind {
	case domain.KindSimpleText:
		s, ok := nonEmptyString(value)
		if !ok || utf8.RuneCountInString(s) > simpleTextMaxLength {
			return prefix + " must be a simple text and not empty", false
		}
	case domain.KindLongText:
		if _, ok := nonEmptyString(value); !ok {
			return prefix + " must be a long text and not empty", false
		}
	case domain.KindEmail:
		s, ok := value.(string)
		if !ok || validate.Var(s, "required,email") != nil {
			return prefix + " must be an email", false
		}
	case domain.KindUUID:
		s, ok := value.(string)
		if !ok || validate.Var(s, "required,uuid") != nil {
			return prefix + " must be a uuid", false
		}
	case domain.KindDate:
		if !parsesAs(value, dateLayout) {
			return prefix + " must be a string date", false
		}
	case domain.KindTime:
		if !parsesAs(value, timeLayout) {
			return prefix + " must be a string time", false
		}
	case domain.KindDatetime:
		if !parsesAs(value, datetimeLayout) {
			return prefix + " must be a string datetime", false
		}
	case domain.KindBoolean:
		if _, ok := value.(bool); !ok {
			return prefix + " must be a boolean", false
		}
	case domain.KindInteger:
		if !isInteger(value) {
			return prefix + " must be an integer", false
		}
	case domain.KindNumber:
		if !isNumber(value) {
			return prefix + " must be a number", false
		}
	case domain.KindFloat:
		if !isNumber(value) {
			return prefix + " must be a float", false
		}
	case domain.KindSelect:
		s, ok := nonEmptyString(value)
		if !ok || !contains(allowed, s) {
			return prefix + " must be one of: " + strings.Join(allowed, ", "), false
		}
	default:
		return prefix + " has an unknown type", false
	}

	return "", true
}

func nonEmptyString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func parsesAs(value any, layout string) bool {
	s, ok := nonEmptyString(value)
	if !ok {
		return false
	}
	_, err := time.Parse(layout, s)
	return err == nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isInteger(value any) bool {
	switch n := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		f := float64(n)
		return isFinite(f) && f == math.Trunc(f)
	case float64:
		return isFinite(n) && n == math.Trunc(n)
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return true
		}
		f, err := n.Float64()
		return err == nil && isFinite(f) && f == math.Trunc(f)
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch n := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return isFinite(float64(n))
	case float64:
		return isFinite(n)
	case json.Number:
		f, err := n.Float64()
		return err == nil && isFinite(f)
	default:
		return false
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
