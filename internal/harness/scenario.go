package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/framegraph/internal/resource"
)

var validate = validator.New()

// Scenario is a scripted frame-graph run with assertions.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file.
	Name string `yaml:"name" validate:"required"`

	// Description explains what the scenario checks.
	Description string `yaml:"description" validate:"required"`

	// Frames is the number of frames to run. Zero leaves the choice to the
	// runner; see FrameCount.
	Frames int `yaml:"frames,omitempty" validate:"omitempty,gte=1,lte=10000"`

	// Globals are written by the host before the first frame.
	Globals []Global `yaml:"globals,omitempty" validate:"dive"`

	// Tasks are registered in order before the first frame.
	Tasks []TaskDef `yaml:"tasks" validate:"required,min=1,dive"`

	// Templates are scripts that spawn ops instantiate.
	Templates map[string]Script `yaml:"templates,omitempty" validate:"dive"`

	// Assertions are checked after the frames they name.
	Assertions []Assertion `yaml:"assertions" validate:"required,min=1,dive"`
}

// Global seeds one Global resource.
type Global struct {
	Key   string `yaml:"key" validate:"required"`
	Value any    `yaml:"value"`
}

// Script is the behavior of a scripted task.
type Script struct {
	// ActiveWhen gates Eval; nil means always active.
	ActiveWhen *Condition `yaml:"active_when,omitempty"`

	Init []Op `yaml:"init,omitempty" validate:"dive"`
	Eval []Op `yaml:"eval,omitempty" validate:"dive"`
}

// TaskDef registers one scripted task.
type TaskDef struct {
	Key string `yaml:"key" validate:"required"`

	// After places the task right after another registered task.
	After string `yaml:"after,omitempty"`

	// Template reuses a named script instead of an inline one.
	Template string `yaml:"template,omitempty"`

	// ExpectInitError marks a task whose Init is supposed to fail.
	ExpectInitError bool `yaml:"expect_init_error,omitempty"`

	Script `yaml:",inline"`
}

// Condition is satisfied when the named resource is mutated (or exists).
// Not inverts it.
type Condition struct {
	Mutated string `yaml:"mutated,omitempty"`
	Exists  string `yaml:"exists,omitempty"`
	Not     bool   `yaml:"not,omitempty"`
}

// Op is a single scripted step.
type Op struct {
	Op       string `yaml:"op" validate:"required,oneof=set update add copy touch remove remove_task spawn spawn_after clear fail"`
	Ref      string `yaml:"ref,omitempty"`
	From     string `yaml:"from,omitempty"`
	Value    any    `yaml:"value,omitempty"`
	Task     string `yaml:"task,omitempty"`
	After    string `yaml:"after,omitempty"`
	Template string `yaml:"template,omitempty"`
	Message  string `yaml:"message,omitempty"`

	// Epsilon is the float tolerance of update.
	Epsilon float64 `yaml:"epsilon,omitempty" validate:"gte=0"`

	// Frame restricts the op to one frame; 0 means every frame.
	Frame int64 `yaml:"frame,omitempty" validate:"gte=0"`
}

// Assertion checks the scheduler state after a frame.
type Assertion struct {
	Type string `yaml:"type" validate:"required,oneof=value mutated exists task_exists eval_count order skipped error"`

	// Frame is the frame after which the assertion is checked; 0 means
	// after the last frame.
	Frame int64 `yaml:"frame,omitempty" validate:"gte=0"`

	Ref     string   `yaml:"ref,omitempty"`
	Task    string   `yaml:"task,omitempty"`
	Equals  any      `yaml:"equals,omitempty"`
	Want    *bool    `yaml:"want,omitempty"`
	Count   *int     `yaml:"count,omitempty"`
	Tasks   []string `yaml:"tasks,omitempty"`
	Message string   `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertValue      = "value"
	AssertMutated    = "mutated"
	AssertExists     = "exists"
	AssertTaskExists = "task_exists"
	AssertEvalCount  = "eval_count"
	AssertOrder      = "order"
	AssertSkipped    = "skipped"
	AssertError      = "error"
)

// DefaultFrames is the frame count of a scenario that does not set one.
const DefaultFrames = 1

// Namespace alias for the running task inside op scripts.
const selfNamespace = "self"

// LoadScenario reads, parses and validates a scenario file. Unknown fields
// are rejected so typos do not silently disable a check.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks field constraints and cross references: op arguments,
// ref syntax, templates and assertion targets.
func Validate(sc *Scenario) error {
	if err := validate.Struct(sc); err != nil {
		return err
	}

	var errs []error
	for i, g := range sc.Globals {
		if strings.Contains(g.Key, "/") {
			errs = append(errs, fmt.Errorf("globals[%d]: key %q must not contain '/'", i, g.Key))
		}
		if g.Value == nil {
			errs = append(errs, fmt.Errorf("globals[%d]: value is required", i))
		}
	}
	for i, td := range sc.Tasks {
		where := fmt.Sprintf("tasks[%d] (%s)", i, td.Key)
		if td.Template != "" {
			if _, ok := sc.Templates[td.Template]; !ok {
				errs = append(errs, fmt.Errorf("%s: unknown template %q", where, td.Template))
			}
			if len(td.Init) > 0 || len(td.Eval) > 0 || td.ActiveWhen != nil {
				errs = append(errs, fmt.Errorf("%s: template and inline script are exclusive", where))
			}
		}
		errs = append(errs, validateScript(sc, where, td.Script)...)
	}
	for name, tpl := range sc.Templates {
		errs = append(errs, validateScript(sc, "templates."+name, tpl)...)
	}
	for i, a := range sc.Assertions {
		if err := validateAssertion(sc, a); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func validateScript(sc *Scenario, where string, s Script) []error {
	var errs []error
	if c := s.ActiveWhen; c != nil {
		switch {
		case (c.Mutated == "") == (c.Exists == ""):
			errs = append(errs, fmt.Errorf("%s: active_when needs exactly one of mutated, exists", where))
		case c.Mutated != "":
			errs = appendErr(errs, where+": active_when", checkRef(c.Mutated, true))
		default:
			errs = appendErr(errs, where+": active_when", checkRef(c.Exists, true))
		}
	}
	for i, op := range s.Init {
		errs = appendErr(errs, fmt.Sprintf("%s: init[%d] %s", where, i, op.Op), validateOp(sc, op))
	}
	for i, op := range s.Eval {
		errs = appendErr(errs, fmt.Sprintf("%s: eval[%d] %s", where, i, op.Op), validateOp(sc, op))
	}
	return errs
}

func validateOp(sc *Scenario, op Op) error {
	switch op.Op {
	case "set", "update":
		if op.Value == nil {
			return errors.New("value is required")
		}
		return checkRef(op.Ref, true)
	case "add":
		if op.Value != nil {
			if _, ok := op.Value.(int); !ok {
				return fmt.Errorf("value must be an integer, got %T", op.Value)
			}
		}
		if op.From != "" {
			if err := checkRef(op.From, true); err != nil {
				return err
			}
		}
		return checkRef(op.Ref, true)
	case "copy":
		if err := checkRef(op.From, true); err != nil {
			return err
		}
		return checkRef(op.Ref, true)
	case "touch", "remove":
		return checkRef(op.Ref, true)
	case "remove_task":
		if op.Task == "" {
			return errors.New("task is required")
		}
	case "spawn", "spawn_after":
		if op.Task == "" {
			return errors.New("task is required")
		}
		if _, ok := sc.Templates[op.Template]; !ok {
			return fmt.Errorf("unknown template %q", op.Template)
		}
		if op.Op == "spawn_after" && op.After == "" {
			return errors.New("after is required")
		}
	case "fail":
		if op.Message == "" {
			return errors.New("message is required")
		}
	}
	return nil
}

// FrameCount returns the number of frames Run executes: Frames, or
// DefaultFrames when it is unset.
func (sc *Scenario) FrameCount() int {
	if sc.Frames == 0 {
		return DefaultFrames
	}
	return sc.Frames
}

func validateAssertion(sc *Scenario, a Assertion) error {
	if sc.Frames > 0 && a.Frame > int64(sc.Frames) {
		return fmt.Errorf("frame %d is beyond the %d frames run", a.Frame, sc.Frames)
	}
	switch a.Type {
	case AssertValue:
		if a.Equals == nil {
			return errors.New("equals is required")
		}
		return checkRef(a.Ref, false)
	case AssertMutated, AssertExists:
		if a.Want == nil {
			return errors.New("want is required")
		}
		return checkRef(a.Ref, false)
	case AssertTaskExists:
		if a.Task == "" || a.Want == nil {
			return errors.New("task and want are required")
		}
	case AssertEvalCount:
		if a.Task == "" || a.Count == nil {
			return errors.New("task and count are required")
		}
	case AssertError:
		if a.Message == "" {
			return errors.New("message is required")
		}
	}
	return nil
}

// checkRef validates "namespace/key". allowSelf permits the self alias.
func checkRef(ref string, allowSelf bool) error {
	ns, _, ok := splitRef(ref)
	if !ok {
		return fmt.Errorf("ref %q must be namespace/key", ref)
	}
	if ns == selfNamespace && !allowSelf {
		return fmt.Errorf("ref %q: self is only valid inside scripts", ref)
	}
	return nil
}

func splitRef(ref string) (ns, key string, ok bool) {
	i := strings.LastIndex(ref, "/")
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}

// isGlobal reports whether a script ref addresses the Global namespace.
func isGlobal(ns string) bool {
	return ns == resource.Global
}

func appendErr(errs []error, where string, err error) []error {
	if err == nil {
		return errs
	}
	return append(errs, fmt.Errorf("%s: %w", where, err))
}
