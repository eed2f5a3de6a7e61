// Package validation holds the field rules every avatar write must satisfy.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/weiawesome/avatar-service/internal/domain"
)

// Field limits.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MinHeightInCM        = 120
	MaxHeightInCM        = 215
)

// Candidate is the set of fields checked before a write. Create passes the
// request as is; update passes the existing record with the changes merged in.
type Candidate struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Gender      string   `json:"gender" validate:"required,oneof=M F O"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	HeightInCM  *float64 `json:"heightInCM" validate:"required,gte=120,lte=215"`
}

// FromCreateRequest builds a candidate from a create body.
func FromCreateRequest(req *domain.CreateAvatarRequest) Candidate {
	return Candidate{
		Name:        req.Name,
		Gender:      req.Gender,
		Description: req.Description,
		HeightInCM:  req.HeightInCM,
	}
}

// FromAvatar builds a candidate from a complete record.
func FromAvatar(a *domain.Avatar) Candidate {
	description := a.Description
	height := a.HeightInCM
	return Candidate{
		Name:        a.Name,
		Gender:      a.Gender,
		Description: &description,
		HeightInCM:  &height,
	}
}

// Errors maps a JSON field name to its violation messages.
type Errors map[string][]string

// Error lists the offending fields.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "field validation failed: " + strings.Join(fields, ", ")
}

// Add records msg against field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// FieldError returns Errors holding a single message.
func FieldError(field, msg string) Errors {
	return Errors{field: {msg}}
}

var messages = map[string]map[string]string{
	"name": {
		"required": "Avatar name missing.",
		"max":      "Avatar name should be less than 100 characters.",
	},
	"gender": {
		"required": "Avatar's gender must be specified.",
		"oneof":    "Avatar's gender must be one of M, F, O.",
	},
	"description": {
		"max": "Avatar's description should be less than 500 characters.",
	},
	"heightInCM": {
		"required": "Avatar's height is missing.",
		"gte":      "Avatar's height should be between 120cm to 215cm.",
		"lte":      "Avatar's height should be between 120cm to 215cm.",
	},
}

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
	return v
}

// Validate checks every rule and reports all violations together.
// It returns nil when the candidate is valid.
func Validate(c Candidate) Errors {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	out := Errors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("_", err.Error())
		return out
	}

	for _, fe := range verrs {
		msg, ok := messages[fe.Field()][fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		out.Add(fe.Field(), msg)
	}
	return out
}
