// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// resourceIDPattern matches ids the gateway issues: GUIDs and short
// alphanumeric keys. Slashes and dots are rejected so an id can never change
// the REST path it is joined into.
var resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Error is returned by Struct and Var when validation fails.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Details returns the failed fields for an API error body.
func (e *Error) Details() map[string]any {
	return map[string]any{"fields": e.Fields}
}

// Validator returns the shared validator. Field names in errors come from
// json tags so they match what API clients send.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
		// Registration only fails for an empty tag or nil func.
		_ = v.RegisterValidation("resourceid", func(fl validator.FieldLevel) bool {
			return resourceIDPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Struct validates s. It returns nil or *Error.
func Struct(s any) error {
	return convert(Validator().Struct(s), "")
}

// Var validates a single value, such as a path parameter, against tag.
func Var(name string, value any, tag string) error {
	return convert(Validator().Var(value, tag), name)
}

// ResourceID checks a gateway resource id taken from a URL.
func ResourceID(name, id string) error {
	return Var(name, id, "required,resourceid")
}

func convert(err error, name string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: name, Tag: "invalid", Message: err.Error()}}}
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = name
		}
		out.Fields[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(field, fe),
		}
	}
	return out
}

var plainMessages = map[string]string{
	"required":   "%s is required",
	"uuid":       "%s must be a UUID",
	"url":        "%s must be a URL",
	"resourceid": "%s must be a valid resource id",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func message(field string, fe validator.FieldError) string {
	if tpl, ok := plainMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, field)
	}
	if tpl, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, field, fe.Param())
	}
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
