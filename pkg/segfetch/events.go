package segfetch

import "segfetch/internal/events"

// Re-exported event types for consumers.
type Event = events.Event
type EventKind = events.Kind
type Handler = events.Handler
type Status = events.Status
type Start = events.Start
type ProgressUpdate = events.ProgressUpdate
type Finish = events.Finish

const (
	KindStart    = events.KindStart
	KindProgress = events.KindProgress
	KindFinish   = events.KindFinish

	StatusSuccess = events.StatusSuccess
	StatusFailure = events.StatusFailure
)
