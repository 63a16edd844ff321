// Package validate judges responder replies against named acceptance
// criteria. Validators are pure predicates over a response body;
// composition is strict AND with every failing validator's name
// collected into the response's failure detail.
package validate

import (
	"fmt"
	"strings"

	"github.com/msageha/botprobe/internal/model"
)

// Validator is a named predicate over an observed response.
type Validator interface {
	Name() string
	Check(resp *model.Response) bool
}

type namedValidator struct {
	name string
	fn   func(*model.Response) bool
}

func (v namedValidator) Name() string                    { return v.name }
func (v namedValidator) Check(resp *model.Response) bool { return v.fn(resp) }

// Func wraps a caller-supplied predicate over the raw body text.
func Func(name string, fn func(body string) bool) Validator {
	return namedValidator{
		name: name,
		fn:   func(resp *model.Response) bool { return fn(resp.Body) },
	}
}

// errorKeywords are failure indicators a responder reply must not carry.
var errorKeywords = []string{
	"error:", "failed:", "exception:",
	"traceback", "could not", "unable to",
}

// successKeywords are completion indicators, at least one of which a
// successful reply is expected to carry.
var successKeywords = []string{
	"complete", "success", "committed", "pushed",
	"changes", "modified", "updated",
}

// Contains matches when the body contains substr, case-insensitively.
func Contains(substr string) Validator {
	lowered := strings.ToLower(substr)
	return namedValidator{
		name: fmt.Sprintf("contains(%q)", substr),
		fn: func(resp *model.Response) bool {
			return strings.Contains(strings.ToLower(resp.Body), lowered)
		},
	}
}

// NoErrorKeywords fails when any denylisted failure term appears.
func NoErrorKeywords() Validator {
	return namedValidator{
		name: "no_error_keywords",
		fn: func(resp *model.Response) bool {
			body := strings.ToLower(resp.Body)
			for _, kw := range errorKeywords {
				if strings.Contains(body, kw) {
					return false
				}
			}
			return true
		},
	}
}

// HasSuccessIndicators passes when at least one completion term appears.
func HasSuccessIndicators() Validator {
	return namedValidator{
		name: "has_success_indicators",
		fn: func(resp *model.Response) bool {
			body := strings.ToLower(resp.Body)
			for _, kw := range successKeywords {
				if strings.Contains(body, kw) {
					return true
				}
			}
			return false
		},
	}
}

// Apply runs every validator against resp and finalizes its Passed and
// FailureDetail fields. A validator that panics counts as a failure
// with its message recorded; panics never escape to the caller.
func Apply(resp *model.Response, validators ...Validator) {
	var failures []string
	for _, v := range validators {
		passed, panicMsg := check(v, resp)
		switch {
		case panicMsg != "":
			failures = append(failures, fmt.Sprintf("validator %s error: %s", v.Name(), panicMsg))
		case !passed:
			failures = append(failures, fmt.Sprintf("validator %s failed", v.Name()))
		}
	}
	resp.Passed = len(failures) == 0
	resp.FailureDetail = strings.Join(failures, "; ")
}

func check(v Validator, resp *model.Response) (passed bool, panicMsg string) {
	defer func() {
		if r := recover(); r != nil {
			passed = false
			panicMsg = fmt.Sprint(r)
		}
	}()
	return v.Check(resp), ""
}
