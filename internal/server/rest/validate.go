package rest

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/go-playground/validator/v10"
)

// messages maps "<json field>.<tag>" to the text shown to the caller.
var messages = map[string]string{
	"name.required":              "Name is required",
	"name.min":                   "Name must be between 2 and 50 characters",
	"name.max":                   "Name must be between 2 and 50 characters",
	"email.required":             "Please provide a valid email",
	"email.email":                "Please provide a valid email",
	"password.required":          "Password is required",
	"password.min":               "Password must be at least 6 characters long",
	"password.strongpassword":    "Password must contain at least one lowercase letter, one uppercase letter, and one number",
	"currentPassword.required":   "Current password is required",
	"newPassword.required":       "New password is required",
	"newPassword.min":            "New password must be at least 6 characters long",
	"newPassword.strongpassword": "New password must contain at least one lowercase letter, one uppercase letter, and one number",
	"role.oneof":                 "Role must be either user or admin",
	"isActive.bool":              "isActive must be true or false",
	"avatar.avatar":              "Avatar must be a valid URL",
	"contentType.required":       "Content type is required",
}

type requestValidator struct {
	v *validator.Validate
}

func newValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", strongPassword)
	_ = v.RegisterValidation("avatar", avatarURL)
	return &requestValidator{v: v}
}

// Validate checks s against its struct tags and returns a
// *common.ValidationError listing every failed rule.
func (rv *requestValidator) Validate(s any) error {
	err := rv.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &common.ValidationError{}
	seen := make(map[string]bool)
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out.Fields = append(out.Fields, common.FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// strongPassword requires a lowercase letter, an uppercase letter and a digit.
func strongPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// avatarURL accepts an absolute http(s) URL, or the empty string to clear.
func avatarURL(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
