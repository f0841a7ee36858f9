package render

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfDate reports that the swapchain no longer matches the surface.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrSuboptimal reports that an image was presented but the swapchain
	// should be rebuilt to match the surface.
	ErrSuboptimal = errors.New("swapchain suboptimal")

	ErrTimeout = errors.New("timed out waiting on the device")

	ErrMissingEntryPoint = errors.New("shader entry point not found")

	// ErrSurfaceUnavailable reports that the surface cannot currently produce images,
	// for example while the window is minimized.
	ErrSurfaceUnavailable = errors.New("surface unavailable")
)

// IsTransient reports whether err is recovered by retrying on a later tick.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOutOfDate) || errors.Is(err, ErrSuboptimal) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrSurfaceUnavailable)
}

// OrPanic runs the finalizers and panics when err is non-nil.
func OrPanic(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	Logger().Error("fatal render error", "err", err)
	panic(err)
}

// CheckError converts a recovered panic into *err. Use it deferred.
func CheckError(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = fmt.Errorf("recovered: %w", e)
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}
