package frame

import (
	"fmt"

	"epsilon/src/render"
)

type EventKind int

const (
	// EventOther is any window-system event the loop ignores.
	EventOther EventKind = iota
	EventCloseRequested
	EventResized
	// EventRedrawEventsCleared marks the end of a batch of window events;
	// it is the tick on which a frame is drawn.
	EventRedrawEventsCleared
)

func (k EventKind) String() string {
	switch k {
	case EventCloseRequested:
		return "CloseRequested"
	case EventResized:
		return "Resized"
	case EventRedrawEventsCleared:
		return "RedrawEventsCleared"
	}
	return "Other"
}

// Event is a window-system event. Size is only set for EventResized.
type Event struct {
	Kind EventKind
	Size render.Size
}

func (e Event) String() string {
	if e.Kind == EventResized {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Size)
	}
	return e.Kind.String()
}

func CloseRequested() Event {
	return Event{Kind: EventCloseRequested}
}

func Resized(width, height uint32) Event {
	return Event{Kind: EventResized, Size: render.Size{Width: width, Height: height}}
}

func RedrawEventsCleared() Event {
	return Event{Kind: EventRedrawEventsCleared}
}

// EventSource delivers window-system events in order. NextEvent reports
// false once the source is exhausted; the loop treats that as a close request.
type EventSource interface {
	NextEvent() (Event, bool)
}
