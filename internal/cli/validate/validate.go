// Package validate holds the advisory input checks the client runs before it
// dispatches a request. The backend stays authoritative; these only short-circuit
// input that is obviously wrong.
package validate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taskwiz/taskwiz/internal/cli/apierr"
)

const (
	MaxTitleLength    = 255
	MinPasswordLength = 6
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

type credentials struct {
	Email    string `validate:"required,emailshape"`
	Password string `validate:"required,min=6"`
}

type email struct {
	Email string `validate:"required,emailshape"`
}

type taskTitle struct {
	Title string `validate:"nonblank,max=255"`
}

type page struct {
	Page int `validate:"min=1"`
}

var messages = map[string]map[string]string{
	"Email": {
		"required":   "Email is required",
		"emailshape": "Please enter a valid email address",
	},
	"Password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
	},
	"Title": {
		"nonblank": "Title is required",
		"max":      "Title cannot exceed 255 characters",
	},
	"Page": {
		"min": "Page must be 1 or greater",
	},
}

// Credentials checks an email/password pair for the sign-in and sign-up forms.
func Credentials(email, password string) error {
	return check(credentials{Email: email, Password: password})
}

// Email checks only the email half of the credential form.
func Email(value string) error {
	return check(email{Email: value})
}

// TaskTitle checks a title for task creation and update.
func TaskTitle(title string) error {
	return check(taskTitle{Title: title})
}

// Page checks a 1-based page number.
func Page(n int) error {
	return check(page{Page: n})
}

func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierr.NewValidation("", err.Error())
	}

	// Report the first failure only; forms show one message per submit.
	fe := fieldErrs[0]
	msg, ok := messages[fe.Field()][fe.Tag()]
	if !ok {
		msg = fe.Error()
	}
	return apierr.NewValidation(strings.ToLower(fe.Field()), msg)
}
