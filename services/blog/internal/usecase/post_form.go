package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxTitleLength = 255
	MaxTextLength  = 2047

	msgRequired = "This field is required."
	msgNullChar = "Null characters are not allowed."
	msgInvalid  = "Enter a valid value."
)

// PostForm is the user-submitted part of a post. The author is deliberately
// absent: it always comes from the session.
type PostForm struct {
	Title string `form:"title" json:"title"`
	Text  string `form:"text" json:"text"`
}

// ValidPost is a PostForm that passed ValidatePostForm.
type ValidPost struct {
	Title string
	Text  string
}

// FieldErrors maps a form field name to its error messages.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range e.Fields() {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return "invalid post: " + strings.Join(parts, "; ")
}

// Fields lists the invalid field names in a stable order.
func (e FieldErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Postgres text columns reject NUL bytes and invalid UTF-8, so both are
// field errors rather than storage failures.
type postFormRules struct {
	Title string `validate:"required,utf8,nonul,max=255"`
	Text  string `validate:"required,utf8,nonul,max=2047"`
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool {
		return utf8.ValidString(fl.Field().String())
	})
	_ = v.RegisterValidation("nonul", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})
	return v
}

// ValidatePostForm trims both fields and checks presence and length. Lengths
// are counted in characters, not bytes.
func ValidatePostForm(form PostForm) (ValidPost, error) {
	rules := postFormRules{
		Title: strings.TrimSpace(form.Title),
		Text:  strings.TrimSpace(form.Text),
	}

	err := formValidator.Struct(rules)
	if err == nil {
		return ValidPost{Title: rules.Title, Text: rules.Text}, nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return ValidPost{}, err
	}

	fieldErrs := FieldErrors{}
	for _, fe := range validationErrs {
		field := strings.ToLower(fe.StructField())
		fieldErrs[field] = append(fieldErrs[field], fieldMessage(fe))
	}
	return ValidPost{}, fieldErrs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "nonul":
		return msgNullChar
	case "max":
		value, _ := fe.Value().(string)
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), utf8.RuneCountInString(value))
	default:
		return msgInvalid
	}
}
