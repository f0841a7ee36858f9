package frame

import "epsilon/src/render"

type State int

const (
	StateIdle State = iota
	// StatePendingRebuild is held while the swapchain needs rebuilding and
	// the last attempt has not succeeded yet.
	StatePendingRebuild
	StatePresenting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePendingRebuild:
		return "PendingRebuild"
	case StatePresenting:
		return "Presenting"
	case StateTerminated:
		return "Terminated"
	}
	return "Unknown"
}

// Invalidation holds the two edge-triggered rebuild flags. Both are set by
// events and cleared only by a successful rebuild.
type Invalidation struct {
	ResizeRequested bool
	Size            render.Size
	Recreate        bool
}

func (i Invalidation) Dirty() bool {
	return i.ResizeRequested || i.Recreate
}

// Tick reports what one dispatched event did.
type Tick struct {
	Event Event
	State State

	RebuildAttempted bool
	Rebuilt          bool
	PipelineRebuilt  bool

	Acquired   bool
	ImageIndex int
	Submitted  bool
	// Presented is set once the submission's fence signaled.
	Presented bool
	Dropped   bool

	// Err is the recoverable error seen during the tick, if any.
	Err error
}
