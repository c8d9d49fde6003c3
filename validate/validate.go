// Package validate runs optional per-field checks over request parameters.
// Results are diagnostics only; a failed check never stops a request.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Checker inspects one field value and returns a non-nil error when it is unexpected
type Checker func(value any) error

// Checkers maps field names to their checker
type Checkers map[string]Checker

// Result is the outcome of one field check
type Result struct {
	Field   string
	Message string
}

// Ok reports whether the check passed
func (r Result) Ok() bool {
	return r.Message == ""
}

func (r Result) String() string {
	if r.Ok() {
		return r.Field + ": ok"
	}
	return r.Field + ": " + r.Message
}

// Ok builds a passing result
func Ok(field string) Result {
	return Result{Field: field}
}

// Warning builds a failing result
func Warning(field, message string) Result {
	return Result{Field: field, Message: message}
}

// Check runs every checker against the matching entry of values, in field order.
// A nil values map is checked as if every field were absent.
// A panicking checker yields a warning instead of propagating.
func (c Checkers) Check(values map[string]any) []Result {
	if len(c) == 0 {
		return nil
	}

	fields := make([]string, 0, len(c))
	for f := range c {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	results := make([]Result, 0, len(fields))
	for _, f := range fields {
		results = append(results, run(f, c[f], values[f]))
	}
	return results
}

// Warnings returns only the failing results of Check
func (c Checkers) Warnings(values map[string]any) []Result {
	var out []Result
	for _, r := range c.Check(values) {
		if !r.Ok() {
			out = append(out, r)
		}
	}
	return out
}

func run(field string, check Checker, value any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Warning(field, fmt.Sprintf("checker panicked: %v", r))
		}
	}()

	if check == nil {
		return Ok(field)
	}
	if err := check(value); err != nil {
		return Warning(field, err.Error())
	}
	return Ok(field)
}

var (
	validateOnce sync.Once
	shared       *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		shared = validator.New(validator.WithRequiredStructEnabled())
	})
	return shared
}

// Tag checks the value against a validator tag such as "required,min=1" or "oneof=asc desc"
func Tag(tag string) Checker {
	return func(value any) error {
		err := instance().Var(value, tag)
		if err == nil {
			return nil
		}

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Param() != "" {
				return fmt.Errorf("failed %q=%s on value %v", fe.Tag(), fe.Param(), value)
			}
			return fmt.Errorf("failed %q on value %v", fe.Tag(), value)
		}
		return err
	}
}

// Kind checks that a present value has one of the given kinds. Absent values pass.
func Kind(kinds ...reflect.Kind) Checker {
	return func(value any) error {
		if value == nil {
			return nil
		}
		k := reflect.TypeOf(value).Kind()
		for _, want := range kinds {
			if k == want {
				return nil
			}
		}
		return fmt.Errorf("expected %v, got %s", kinds, k)
	}
}

// Required fails when the value is nil or the zero value of its type
func Required() Checker {
	return func(value any) error {
		if value == nil || reflect.ValueOf(value).IsZero() {
			return errors.New("is required")
		}
		return nil
	}
}

// All combines checkers and reports the first failure
func All(checks ...Checker) Checker {
	return func(value any) error {
		for _, c := range checks {
			if err := c(value); err != nil {
				return err
			}
		}
		return nil
	}
}
