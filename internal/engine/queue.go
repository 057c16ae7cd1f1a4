package engine

// commandKind distinguishes structural changes.
type commandKind int

const (
	cmdAddTask commandKind = iota + 1
	cmdRemoveTask
	cmdClear
	cmdRemoveResource
)

// String returns the name used in frame reports and the journal.
func (k commandKind) String() string {
	switch k {
	case cmdAddTask:
		return "add_task"
	case cmdRemoveTask:
		return "remove_task"
	case cmdClear:
		return "clear"
	case cmdRemoveResource:
		return "remove_resource"
	default:
		return "unknown"
	}
}

// command is a structural change requested while a frame pass is running.
type command struct {
	kind  commandKind
	task  string // task key, or resource namespace for cmdRemoveResource
	after string // cmdAddTask: insert after this task ("" appends)
	key   string // cmdRemoveResource: resource key
	impl  Task   // cmdAddTask
}

// commandQueue buffers structural changes until the pass completes.
//
// Commands are applied strictly in request order. The live task list is
// never modified while the pass iterates it.
type commandQueue struct {
	cmds []command
}

func newCommandQueue() *commandQueue {
	return &commandQueue{cmds: make([]command, 0, 16)}
}

// push appends a command.
func (q *commandQueue) push(c command) {
	q.cmds = append(q.cmds, c)
}

// drain returns every queued command and leaves the queue empty.
func (q *commandQueue) drain() []command {
	out := q.cmds
	q.cmds = make([]command, 0, cap(out))
	return out
}

// Len returns the number of queued commands.
func (q *commandQueue) Len() int {
	return len(q.cmds)
}

// willExist replays the queued commands on top of exists to predict whether
// key will be registered once the queue is applied.
func (q *commandQueue) willExist(key string, exists bool) bool {
	for _, c := range q.cmds {
		switch c.kind {
		case cmdAddTask:
			if c.task == key {
				exists = true
			}
		case cmdRemoveTask:
			if c.task == key || IsDescendant(key, c.task) {
				exists = false
			}
		case cmdClear:
			exists = false
		}
	}
	return exists
}
