// Package frame drives the acquire, submit and present cycle of a swapchain
// and rebuilds size-dependent resources when the surface changes.
package frame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"epsilon/src/render"
	"epsilon/src/render/commands"
	"epsilon/src/render/pipeline"
	"epsilon/src/render/surface"
)

// Resources are the long-lived objects the driver draws with. The driver
// takes ownership and releases them on close.
type Resources struct {
	RenderPass     render.RenderPass
	VertexShader   render.ShaderModule
	FragmentShader render.ShaderModule
	Vertices       render.VertexBuffer
}

// Driver is the frame loop state machine. It is not safe for concurrent use;
// one goroutine dispatches every event.
type Driver struct {
	ctx      render.Context
	res      Resources
	surface  *surface.Resources
	recorder *commands.Recorder

	framebuffers render.FramebufferSet
	pipeline     *render.Pipeline
	table        *commands.Table

	pipelineGeneration uint64
	flags              Invalidation
	state              State

	// pending is a submitted frame whose fence wait timed out.
	pending render.Fence

	acquireTimeout time.Duration
	fenceTimeout   time.Duration
	clearColor     *[4]float32
}

// New builds the initial framebuffers, pipeline and command buffers. Any
// failure here is returned; the caller still owns res in that case.
func New(ctx render.Context, res Resources, options ...DriverOption) (*Driver, error) {
	d := &Driver{
		ctx:     ctx,
		res:     res,
		surface: surface.New(ctx),
		state:   StateIdle,
	}
	for _, opt := range options {
		opt(d)
	}
	var recOpts []commands.RecorderOption
	if d.clearColor != nil {
		recOpts = append(recOpts, commands.WithClearColor(*d.clearColor))
	}
	d.recorder = commands.NewRecorder(ctx, recOpts...)

	set, err := d.surface.Initial(res.RenderPass)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.Build(res.VertexShader, res.FragmentShader, set.Extent, res.RenderPass, ctx)
	if err != nil {
		set.Release()
		return nil, err
	}
	d.pipelineGeneration++
	p.Generation = d.pipelineGeneration

	table, err := d.recorder.Record(set, p, res.Vertices, ctx.QueueFamilyIndex())
	if err != nil {
		p.Release()
		set.Release()
		return nil, err
	}

	d.framebuffers, d.pipeline, d.table = set, p, table
	render.Logger().Info("frame loop ready", "extent", set.Extent, "images", set.Len())
	return d, nil
}

func (d *Driver) State() State {
	return d.state
}

func (d *Driver) Invalidation() Invalidation {
	return d.flags
}

func (d *Driver) Framebuffers() render.FramebufferSet {
	return d.framebuffers
}

func (d *Driver) Pipeline() *render.Pipeline {
	return d.pipeline
}

func (d *Driver) Commands() *commands.Table {
	return d.table
}

// Run dispatches events until the window closes, the source is exhausted or
// ctx is cancelled. Every exit path tears the GPU resources down. Fatal
// errors raised while dispatching are returned rather than propagated.
func (d *Driver) Run(ctx context.Context, events EventSource) (err error) {
	defer func() {
		if d.state != StateTerminated {
			d.close()
		}
	}()
	defer render.CheckError(&err)

	for {
		select {
		case <-ctx.Done():
			d.Dispatch(CloseRequested())
			return ctx.Err()
		default:
		}

		ev, ok := events.NextEvent()
		if !ok {
			d.Dispatch(CloseRequested())
			return nil
		}
		if t := d.Dispatch(ev); t.State == StateTerminated {
			return nil
		}
	}
}

// Dispatch processes one event and reports what happened. Fatal errors
// (pipeline or command recording failures, unrecoverable acquisition
// errors) panic.
func (d *Driver) Dispatch(ev Event) Tick {
	t := Tick{Event: ev}
	if d.state == StateTerminated {
		t.State = d.state
		return t
	}

	switch ev.Kind {
	case EventCloseRequested:
		d.close()
	case EventResized:
		d.flags.ResizeRequested = true
		d.flags.Size = ev.Size
	case EventRedrawEventsCleared:
		d.redraw(&t)
	}

	t.State = d.state
	return t
}

func (d *Driver) redraw(t *Tick) {
	log := render.Logger()
	log.Debug("redraw events cleared",
		"resize", d.flags.ResizeRequested,
		"size", d.flags.Size,
		"recreate", d.flags.Recreate,
	)

	if !d.drainPending(t) {
		return
	}

	if d.flags.Dirty() {
		d.state = StatePendingRebuild
		if !d.rebuild(t) {
			return
		}
		d.state = StateIdle
	}

	idx, suboptimal, err := d.ctx.AcquireNextImage(d.acquireTimeout)
	switch {
	case errors.Is(err, render.ErrOutOfDate):
		d.flags.Recreate = true
		t.Err = err
		return
	case errors.Is(err, render.ErrTimeout):
		log.Warn("dropping frame", "err", err)
		t.Err = err
		t.Dropped = true
		return
	case err != nil:
		render.OrPanic(fmt.Errorf("acquiring next image: %w", err))
	}
	if suboptimal {
		// Present this frame anyway; the swapchain is rebuilt next tick.
		d.flags.Recreate = true
	}
	t.Acquired = true
	t.ImageIndex = idx
	d.state = StatePresenting

	if idx < 0 || idx >= d.table.Len() {
		render.OrPanic(fmt.Errorf("image index %d out of range for %d command buffers", idx, d.table.Len()))
	}
	if !d.table.Current(d.framebuffers, d.pipeline) {
		render.OrPanic(fmt.Errorf("stale command buffers: recorded for framebuffers %d pipeline %d, current %d/%d",
			d.table.FramebufferGeneration, d.table.PipelineGeneration, d.framebuffers.Generation, d.pipeline.Generation))
	}

	fence, err := d.ctx.Submit(idx, d.table.Buffers[idx])
	t.Submitted = true
	switch {
	case err == nil:
	case errors.Is(err, render.ErrSuboptimal):
		// shown, but the swapchain no longer matches the surface exactly
		d.flags.Recreate = true
		err = nil
	case errors.Is(err, render.ErrOutOfDate):
		d.flags.Recreate = true
		t.Err = err
	default:
		log.Error("failed to submit frame", "image", idx, "err", err)
		t.Err = err
		t.Dropped = true
	}

	if fence != nil {
		if d.wait(fence, t) && err == nil {
			t.Presented = true
		}
	}
	d.state = StateIdle
}

// drainPending waits on a fence left over from a timed out tick. It reports
// false when the fence is still outstanding.
func (d *Driver) drainPending(t *Tick) bool {
	if d.pending == nil {
		return true
	}
	fence := d.pending
	d.pending = nil
	return d.wait(fence, t)
}

// wait blocks on fence. A timeout keeps the fence pending and reports false.
func (d *Driver) wait(fence render.Fence, t *Tick) bool {
	err := fence.Wait(d.fenceTimeout)
	switch {
	case err == nil:
		return true
	case errors.Is(err, render.ErrTimeout):
		render.Logger().Warn("frame still in flight", "timeout", d.fenceTimeout)
		d.pending = fence
	default:
		render.Logger().Error("waiting for frame completion", "err", err)
	}
	t.Err = err
	t.Dropped = true
	return false
}

// rebuild recreates the framebuffers and everything recorded against them.
// It reports false when the surface cannot produce images yet; the flags are
// left untouched so the next tick retries.
func (d *Driver) rebuild(t *Tick) bool {
	log := render.Logger()
	t.RebuildAttempted = true

	set, ok := d.surface.Rebuild(d.res.RenderPass)
	if !ok {
		log.Error("failed recreating swapchain, retrying")
		t.Err = render.ErrSurfaceUnavailable
		return false
	}
	d.flags.Recreate = false

	// A zero requested size is a minimize the surface has since recovered
	// from; the rebuilt extent is the only usable size then.
	size := set.Extent
	if d.flags.ResizeRequested && !d.flags.Size.IsZero() {
		size = d.flags.Size
	}
	var next *render.Pipeline
	if d.flags.ResizeRequested || d.pipeline.Size != size {
		next = d.buildPipeline(size, set.Release)
	}
	current := d.pipeline
	if next != nil {
		current = next
	}

	table, err := d.recorder.Record(set, current, d.res.Vertices, d.ctx.QueueFamilyIndex())
	render.OrPanic(err, next.Release, set.Release)

	oldTable, oldPipeline, oldSet := d.table, d.pipeline, d.framebuffers
	d.table, d.pipeline, d.framebuffers = table, current, set

	oldTable.Release()
	if next != nil {
		oldPipeline.Release()
	}
	oldSet.Release()

	d.flags.ResizeRequested = false
	d.flags.Size = render.Size{}

	t.Rebuilt = true
	t.PipelineRebuilt = next != nil
	log.Info("swapchain rebuilt",
		"generation", set.Generation,
		"extent", set.Extent,
		"pipeline", current.Size,
		"images", set.Len(),
	)
	return true
}

// buildPipeline panics on failure after running the finalizers.
func (d *Driver) buildPipeline(size render.Size, finalizers ...func()) *render.Pipeline {
	p, err := pipeline.Build(d.res.VertexShader, d.res.FragmentShader, size, d.res.RenderPass, d.ctx)
	render.OrPanic(err, finalizers...)
	d.pipelineGeneration++
	p.Generation = d.pipelineGeneration
	return p
}

// close waits for in-flight work and releases everything in reverse
// construction order before killing the device layer.
func (d *Driver) close() {
	log := render.Logger()
	if d.pending != nil {
		if err := d.pending.Wait(0); err != nil {
			log.Error("waiting for in-flight frame", "err", err)
		}
		d.pending = nil
	}
	if err := d.ctx.WaitIdle(); err != nil {
		log.Error("waiting for device idle", "err", err)
	}

	d.table.Release()
	d.table = nil
	d.pipeline.Release()
	d.pipeline = nil
	d.framebuffers.Release()
	d.framebuffers = render.FramebufferSet{}

	for _, r := range []render.Releaser{d.res.RenderPass, d.res.Vertices, d.res.VertexShader, d.res.FragmentShader} {
		if r != nil {
			r.Release()
		}
	}
	d.res = Resources{}

	d.ctx.Kill()
	d.state = StateTerminated
	log.Info("frame loop terminated")
}
