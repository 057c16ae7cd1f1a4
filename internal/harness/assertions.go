package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/framegraph/internal/engine"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Frame    int64
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s after frame %d: expected %s, got %s",
		e.Type, e.Frame, e.Expected, e.Actual)
}

// EvaluateAssertions checks the assertions bound to frame against the
// current scheduler state. final selects assertions without a frame as
// well. Returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, frame int64, final bool) []string {
	var errs []string
	for i, a := range assertions {
		if a.Frame != frame && !(a.Frame == 0 && final) {
			continue
		}
		if err := evaluate(result, a, frame); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, frame int64) error {
	s := result.Scheduler
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Frame: frame, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertValue:
		ns, key, _ := splitRef(a.Ref)
		got, err := s.Task(ns).Resource(key).Value()
		if err != nil {
			return fail(fmt.Sprintf("%s = %v", a.Ref, a.Equals), err.Error())
		}
		if !valuesEqual(got, a.Equals) {
			return fail(fmt.Sprintf("%s = %v", a.Ref, a.Equals), fmt.Sprintf("%v (%T)", got, got))
		}

	case AssertMutated:
		ns, key, _ := splitRef(a.Ref)
		if got := s.IsMutated(ns, key); got != *a.Want {
			return fail(fmt.Sprintf("mutated(%s) = %t", a.Ref, *a.Want), fmt.Sprintf("%t", got))
		}

	case AssertExists:
		ns, key, _ := splitRef(a.Ref)
		if got := s.Store().Has(ns, key); got != *a.Want {
			return fail(fmt.Sprintf("exists(%s) = %t", a.Ref, *a.Want), fmt.Sprintf("%t", got))
		}

	case AssertTaskExists:
		if got := s.HasTask(a.Task); got != *a.Want {
			return fail(fmt.Sprintf("task %s registered = %t", a.Task, *a.Want), fmt.Sprintf("%t", got))
		}

	case AssertEvalCount:
		if got := evalCount(result, a.Task, frame); got != *a.Count {
			return fail(fmt.Sprintf("%s evaluated %d times", a.Task, *a.Count), fmt.Sprintf("%d", got))
		}

	case AssertOrder, AssertSkipped:
		rep, ok := report(result, frame)
		if !ok {
			return fail("a report", "none")
		}
		got := rep.Evaluated
		if a.Type == AssertSkipped {
			got = rep.Skipped
		}
		if !slices.Equal(got, a.Tasks) {
			return fail(fmt.Sprintf("%v", nonNilKeys(a.Tasks)), fmt.Sprintf("%v", nonNilKeys(got)))
		}

	case AssertError:
		rep, ok := report(result, frame)
		if !ok || rep.Err == nil {
			return fail(fmt.Sprintf("error containing %q", a.Message), "no error")
		}
		if !strings.Contains(rep.Err.Error(), a.Message) {
			return fail(fmt.Sprintf("error containing %q", a.Message), rep.Err.Error())
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// report finds the report of a scenario frame (1 is the first frame of the
// run).
func report(result *Result, frame int64) (engine.FrameReport, bool) {
	for _, r := range result.Frames {
		if r.Frame-result.StartFrame == frame {
			return r, true
		}
	}
	return engine.FrameReport{}, false
}

// evalCount counts the frames up to and including frame that evaluated task.
func evalCount(result *Result, task string, frame int64) int {
	n := 0
	for _, r := range result.Frames {
		if r.Frame-result.StartFrame <= frame && slices.Contains(r.Evaluated, task) {
			n++
		}
	}
	return n
}

// valuesEqual compares a stored value with a YAML-decoded expectation.
// Integers stored as int64 or float compare against YAML ints by value.
func valuesEqual(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	af, aok := toFloat(actual)
	ef, eok := toFloat(expected)
	return aok && eok && af == ef
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func nonNilKeys(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
