package frame

import "time"

// DriverOption configures a Driver. Use the With* functions to create options.
type DriverOption func(d *Driver)

// WithAcquireTimeout bounds the wait for a presentable image. Zero waits forever.
func WithAcquireTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) {
		d.acquireTimeout = timeout
	}
}

// WithFenceTimeout bounds the wait for frame completion. Zero waits forever.
// A timed out fence stays pending and is waited on again before any resource
// it may reference is touched.
func WithFenceTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) {
		d.fenceTimeout = timeout
	}
}

// WithClearColor sets the render pass clear color of recorded command buffers.
func WithClearColor(c [4]float32) DriverOption {
	return func(d *Driver) {
		d.clearColor = &c
	}
}
