package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/framegraph/internal/resource"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("journal: session not found")

// Session describes a recorded run.
type Session struct {
	ID         string
	Label      string
	StartFrame int64
	Frames     int
	LastFrame  int64 // 0 if no frame was recorded
}

// Frame is a recorded frame.
type Frame struct {
	Frame     int64
	Evaluated []string
	Skipped   []string
	Digest    string
	Error     string
	Duration  time.Duration
}

// Command is a recorded structural change.
type Command struct {
	Seq   int
	Op    string
	Task  string
	Key   string
	Error string
}

const sessionColumns = `
	s.id, s.label, s.start_frame,
	(SELECT COUNT(*) FROM frames f WHERE f.session_id = s.id),
	(SELECT COALESCE(MAX(f.frame), 0) FROM frames f WHERE f.session_id = s.id)
`

// Sessions returns every session in creation order.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions s ORDER BY s.seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Label, &s.StartFrame, &s.Frames, &s.LastFrame); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Session returns one session, or ErrSessionNotFound.
func (j *Journal) Session(ctx context.Context, id string) (Session, error) {
	var s Session
	err := j.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id).
		Scan(&s.ID, &s.Label, &s.StartFrame, &s.Frames, &s.LastFrame)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("query session %s: %w", id, err)
	}
	return s, nil
}

// LatestSession returns the most recently started session, or
// ErrSessionNotFound if the journal is empty.
func (j *Journal) LatestSession(ctx context.Context) (Session, error) {
	var id string
	err := j.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY seq DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("query latest session: %w", err)
	}
	return j.Session(ctx, id)
}

// Frames returns the frames of a session ordered by frame number.
func (j *Journal) Frames(ctx context.Context, session string) ([]Frame, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT frame, evaluated, skipped, digest, error, duration_ns
		FROM frames
		WHERE session_id = ?
		ORDER BY frame ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []Frame{}
	for rows.Next() {
		var f Frame
		var evaluated, skipped string
		var durationNS int64
		if err := rows.Scan(&f.Frame, &evaluated, &skipped, &f.Digest, &f.Error, &durationNS); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if f.Evaluated, err = unmarshalKeys(evaluated); err != nil {
			return nil, fmt.Errorf("frame %d evaluated: %w", f.Frame, err)
		}
		if f.Skipped, err = unmarshalKeys(skipped); err != nil {
			return nil, fmt.Errorf("frame %d skipped: %w", f.Frame, err)
		}
		f.Duration = time.Duration(durationNS)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// Mutations returns the resources mutated in a frame, ordered by namespace
// then key.
func (j *Journal) Mutations(ctx context.Context, session string, frame int64) ([]resource.Ref, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT ns, key, type
		FROM mutations
		WHERE session_id = ? AND frame = ?
		ORDER BY ns COLLATE BINARY ASC, key COLLATE BINARY ASC
	`, session, frame)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	refs := []resource.Ref{}
	for rows.Next() {
		var r resource.Ref
		if err := rows.Scan(&r.Namespace, &r.Key, &r.Type); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return refs, nil
}

// Commands returns the structural changes applied after a frame, in the
// order they were applied.
func (j *Journal) Commands(ctx context.Context, session string, frame int64) ([]Command, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, op, task, key, error
		FROM commands
		WHERE session_id = ? AND frame = ?
		ORDER BY seq ASC
	`, session, frame)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	cmds := []Command{}
	for rows.Next() {
		var c Command
		if err := rows.Scan(&c.Seq, &c.Op, &c.Task, &c.Key, &c.Error); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return cmds, nil
}

// Divergence returns the first frame number at which two sessions recorded
// different digests, or 0 if every frame both recorded matches. Frames are
// paired by position; the digest covers the frame number, so sessions must
// start from the same frame to match.
func (j *Journal) Divergence(ctx context.Context, a, b string) (int64, error) {
	fa, err := j.Frames(ctx, a)
	if err != nil {
		return 0, err
	}
	fb, err := j.Frames(ctx, b)
	if err != nil {
		return 0, err
	}
	n := min(len(fa), len(fb))
	for i := 0; i < n; i++ {
		if fa[i].Digest != fb[i].Digest {
			return fa[i].Frame, nil
		}
	}
	return 0, nil
}

func unmarshalKeys(data string) ([]string, error) {
	keys := []string{}
	if data == "" {
		return keys, nil
	}
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
