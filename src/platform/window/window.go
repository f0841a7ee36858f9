// Package window provides the glfw window the frame loop presents to and
// reads its events from.
package window

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
	"epsilon/src/render/device"
	"epsilon/src/render/frame"
)

// Window is a glfw window without a client API. It must be created and
// driven from the main OS thread.
type Window struct {
	title     string
	width     int
	height    int
	resizable bool

	win   *glfw.Window
	queue eventQueue
}

var (
	_ frame.EventSource      = &Window{}
	_ device.SurfaceProvider = &Window{}
)

// New initializes glfw and opens the window.
func New(options ...Option) (*Window, error) {
	w := &Window{
		title:     "epsilon",
		width:     1024,
		height:    1024,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw reports no vulkan loader")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if w.resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating window: %w", err)
	}
	w.win = win

	// framebuffer size rather than window size: they differ on high-DPI displays
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.queue.push(frame.Resized(uint32(width), uint32(height)))
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		w.queue.push(frame.CloseRequested())
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
			w.queue.push(frame.CloseRequested())
		}
	})

	render.Logger().Info("window opened", "title", w.title, "framebuffer", w.FramebufferSize())
	return w, nil
}

// NextEvent returns the next window event, polling glfw for a new batch when
// the previous one has been consumed.
func (w *Window) NextEvent() (frame.Event, bool) {
	return w.queue.next(w)
}

// WakeOnDone posts an empty event when ctx is cancelled so a poll blocked
// on a minimized window returns. Call the returned function before Destroy.
func (w *Window) WakeOnDone(ctx context.Context) (stop func()) {
	return wakeOnDone(ctx, glfw.PostEmptyEvent)
}

func (w *Window) poll(wait bool) {
	if wait {
		glfw.WaitEvents()
		return
	}
	glfw.PollEvents()
}

func (w *Window) framebufferSize() render.Size {
	return w.FramebufferSize()
}

func (w *Window) FramebufferSize() render.Size {
	width, height := w.win.GetFramebufferSize()
	if width < 0 || height < 0 {
		return render.Size{}
	}
	return render.Size{Width: uint32(width), Height: uint32(height)}
}

func (w *Window) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("creating window surface: %w", err)
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// Destroy closes the window and terminates glfw. Call it after the render
// engine has been killed.
func (w *Window) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}
