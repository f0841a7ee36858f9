package window

import (
	"context"
	"sync"

	"epsilon/src/render"
	"epsilon/src/render/frame"
)

// poller pumps the platform event loop. Callbacks fired while polling push
// onto the queue.
type poller interface {
	poll(wait bool)
	framebufferSize() render.Size
}

// eventQueue turns platform callbacks into frame events. Every poll produces
// one batch: the callbacks it fired, in order, followed by
// RedrawEventsCleared. After a close request has been delivered the queue is
// exhausted.
type eventQueue struct {
	pending []frame.Event
	done    bool
}

func (q *eventQueue) push(ev frame.Event) {
	q.pending = append(q.pending, ev)
}

func (q *eventQueue) next(p poller) (frame.Event, bool) {
	for len(q.pending) == 0 {
		if q.done {
			return frame.Event{}, false
		}
		// a minimized window has nothing to draw; sleep until something happens
		p.poll(p.framebufferSize().IsZero())
		q.push(frame.RedrawEventsCleared())
	}

	ev := q.pending[0]
	q.pending = q.pending[1:]
	if ev.Kind == frame.EventCloseRequested {
		q.pending, q.done = nil, true
	}
	return ev, true
}

// wakeOnDone calls wake once ctx is cancelled. The returned stop function
// ends the watcher and returns only after it has exited, so wake is never
// called after stop.
func wakeOnDone(ctx context.Context, wake func()) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			wake()
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		wg.Wait()
	}
}
