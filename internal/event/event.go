package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PollStarted Type = iota + 1
	PollComplete
	FileDiscovered
	FileStarted
	FileCompleted
	FileFailed
	FileSkipped
	FileCommitted
)

var typeNames = [...]string{
	PollStarted:    "PollStarted",
	PollComplete:   "PollComplete",
	FileDiscovered: "FileDiscovered",
	FileStarted:    "FileStarted",
	FileCompleted:  "FileCompleted",
	FileFailed:     "FileFailed",
	FileSkipped:    "FileSkipped",
	FileCommitted:  "FileCommitted",
}

func (t Type) String() string {
	if t >= 1 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single consumption lifecycle event from the poller.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // relative path
	Size      int64
	Count     int // files consumed (PollComplete)
	Error     error
}
