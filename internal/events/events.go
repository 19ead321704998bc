//go:generate mockgen -destination=mocks/publisher.go -package=mocks . Publisher

// Package events defines the download lifecycle notifications and the
// publish/subscribe bus that carries them. The downloader only ever sees the
// Publisher interface; who listens is up to the embedding program.
package events

// Kind identifies the variant of an Event.
type Kind string

const (
	KindStart    Kind = "start"
	KindProgress Kind = "progress"
	KindFinish   Kind = "finish"
)

// Status is the terminal outcome carried by Finish.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Event is implemented by Start, ProgressUpdate and Finish.
type Event interface {
	Kind() Kind
	// ID is the fileId of the download task the event belongs to.
	ID() string
}

// Start is published once per task before any part begins.
type Start struct {
	FileID      string
	URL         string
	Destination string
	Parts       int
}

// ProgressUpdate carries the aggregate completion percentage in [0,100].
type ProgressUpdate struct {
	FileID  string
	Percent float64
}

// Finish is the terminal event of a task.
type Finish struct {
	FileID string
	Status Status
}

func (e Start) Kind() Kind          { return KindStart }
func (e Start) ID() string          { return e.FileID }
func (e ProgressUpdate) Kind() Kind { return KindProgress }
func (e ProgressUpdate) ID() string { return e.FileID }
func (e Finish) Kind() Kind         { return KindFinish }
func (e Finish) ID() string         { return e.FileID }

// Publisher is the fire-and-forget side of the event channel.
type Publisher interface {
	Publish(event Event)
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})
