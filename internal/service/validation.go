package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
)

// NewValidator returns a validator that reports fields by their JSON name.
// notblank rejects whitespace-only strings that required lets through.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// fieldProblems splits validation failures into missing and malformed fields,
// preserving struct order.
type fieldProblems struct {
	missing []string
	invalid []string
}

func (p *fieldProblems) addMissing(field string) {
	if !contains(p.missing, field) {
		p.missing = append(p.missing, field)
	}
}

func (p *fieldProblems) addInvalid(field string) {
	if !contains(p.invalid, field) && !contains(p.missing, field) {
		p.invalid = append(p.invalid, field)
	}
}

func (p *fieldProblems) collect(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" || fe.Tag() == "notblank" {
			p.addMissing(fe.Field())
		} else {
			p.addInvalid(fe.Field())
		}
	}
	return nil
}

func (p *fieldProblems) empty() bool {
	return len(p.missing) == 0 && len(p.invalid) == 0
}

// err converts the collected problems into a VALIDATION_ERROR.
func (p *fieldProblems) err() error {
	if p.empty() {
		return nil
	}
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "Invalid fields: "+strings.Join(p.invalid, ", "))
	}
	fields := append(append([]string{}, p.missing...), p.invalid...)
	return appErrors.WithFields(appErrors.ErrValidation, strings.Join(parts, "; "), fields)
}

// validateStruct runs v against s and returns a VALIDATION_ERROR listing
// every offending field, or nil.
func validateStruct(v *validator.Validate, s interface{}) error {
	var problems fieldProblems
	if err := problems.collect(v.Struct(s)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return problems.err()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
