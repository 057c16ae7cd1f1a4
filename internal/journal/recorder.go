package journal

import (
	"context"
	"fmt"

	"github.com/roach88/framegraph/internal/engine"
	"github.com/roach88/framegraph/internal/trace"
)

// Recorder appends the frames of one session. It implements
// engine.FrameObserver.
type Recorder struct {
	j       *Journal
	session string
	start   int64
}

// StartSession creates a session and returns its recorder. startFrame is
// the frame number the scheduler's clock starts from (0 for a fresh one).
func (j *Journal) StartSession(ctx context.Context, label string, startFrame int64) (*Recorder, error) {
	id := j.ids.Generate()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, start_frame)
		VALUES (?, ?, ?)
	`, id, label, startFrame)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &Recorder{j: j, session: id, start: startFrame}, nil
}

// Session returns the session ID being recorded.
func (r *Recorder) Session() string {
	return r.session
}

// StartFrame returns the frame the session continues from.
func (r *Recorder) StartFrame() int64 {
	return r.start
}

// ObserveFrame writes the report in a single transaction.
func (r *Recorder) ObserveFrame(ctx context.Context, rep engine.FrameReport) error {
	return r.j.WriteFrame(ctx, r.session, rep)
}

// WriteFrame stores a report under session. Writing the same frame twice
// fails on the primary key.
func (j *Journal) WriteFrame(ctx context.Context, session string, rep engine.FrameReport) error {
	digest, err := trace.FrameDigest(rep)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", rep.Frame, err)
	}
	evaluated, err := marshalKeys(rep.Evaluated)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", rep.Frame, err)
	}
	skipped, err := marshalKeys(rep.Skipped)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", rep.Frame, err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame %d: begin tx: %w", rep.Frame, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO frames
		(session_id, frame, evaluated, skipped, digest, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		session,
		rep.Frame,
		evaluated,
		skipped,
		digest,
		errorText(rep.Err),
		rep.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", rep.Frame, err)
	}

	for _, m := range rep.Mutated {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO mutations (session_id, frame, ns, key, type)
			VALUES (?, ?, ?, ?, ?)
		`, session, rep.Frame, m.Namespace, m.Key, m.Type)
		if err != nil {
			return fmt.Errorf("write frame %d: mutation %s/%s: %w", rep.Frame, m.Namespace, m.Key, err)
		}
	}

	for i, c := range rep.Commands {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO commands (session_id, frame, seq, op, task, key, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, session, rep.Frame, i, c.Op, c.Task, c.Key, errorText(c.Err))
		if err != nil {
			return fmt.Errorf("write frame %d: command %d: %w", rep.Frame, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame %d: commit: %w", rep.Frame, err)
	}
	return nil
}

func marshalKeys(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	data, err := trace.MarshalCanonical(keys)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
