package trace

import (
	"github.com/roach88/framegraph/internal/engine"
)

// Frame converts a report to its canonical object form. Duration is left
// out so that identical runs produce identical traces.
func Frame(r engine.FrameReport) map[string]any {
	mutated := make([]any, len(r.Mutated))
	for i, m := range r.Mutated {
		mutated[i] = map[string]any{
			"ns":   m.Namespace,
			"key":  m.Key,
			"type": m.Type,
		}
	}

	commands := make([]any, len(r.Commands))
	for i, c := range r.Commands {
		cmd := map[string]any{"op": c.Op}
		if c.Task != "" {
			cmd["task"] = c.Task
		}
		if c.Key != "" {
			cmd["key"] = c.Key
		}
		if c.Err != nil {
			cmd["error"] = c.Err.Error()
		}
		commands[i] = cmd
	}

	obj := map[string]any{
		"frame":     r.Frame,
		"evaluated": nonNil(r.Evaluated),
		"skipped":   nonNil(r.Skipped),
		"mutated":   mutated,
		"commands":  commands,
	}
	if r.Err != nil {
		obj["error"] = r.Err.Error()
	}
	return obj
}

// FrameDigest digests a single report under DomainFrame.
func FrameDigest(r engine.FrameReport) (string, error) {
	return Digest(DomainFrame, Frame(r))
}

// Scenario is the canonical trace of a named run.
func Scenario(name string, reports []engine.FrameReport) map[string]any {
	frames := make([]any, len(reports))
	for i, r := range reports {
		frames[i] = Frame(r)
	}
	return map[string]any{
		"scenario": name,
		"frames":   frames,
	}
}

// MarshalScenario encodes Scenario(name, reports) as canonical JSON.
func MarshalScenario(name string, reports []engine.FrameReport) ([]byte, error) {
	return MarshalCanonical(Scenario(name, reports))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
