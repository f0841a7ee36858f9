// Command triangle opens a window and draws a single triangle through the
// swapchain frame loop until the window is closed.
package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"epsilon/src/config"
	"epsilon/src/platform/window"
	"epsilon/src/render"
	"epsilon/src/render/device"
	"epsilon/src/render/frame"
	"epsilon/src/render/shader"
)

const entryPoint = "main"

var (
	//go:embed shaders/triangle.vert.wgsl
	vertexSource []byte
	//go:embed shaders/triangle.frag.wgsl
	fragmentSource []byte
)

var triangle = []render.Vertex{
	{Position: [2]float32{-0.5, -0.5}},
	{Position: [2]float32{0.0, 0.5}},
	{Position: [2]float32{0.5, -0.25}},
}

func init() {
	// glfw and the vulkan surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	render.SetLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		logger.Error("triangle exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	win, err := window.New(
		window.WithTitle(cfg.Title),
		window.WithWidth(cfg.Width),
		window.WithHeight(cfg.Height),
	)
	if err != nil {
		return err
	}
	defer win.Destroy()

	engine, err := device.New(win,
		device.WithApplicationName(cfg.Title),
		device.WithValidation(cfg.Validation),
		device.WithVSync(cfg.VSync),
	)
	if err != nil {
		return err
	}

	res, err := createResources(engine, cfg)
	if err != nil {
		engine.Kill()
		return err
	}

	driver, err := frame.New(engine, res,
		frame.WithAcquireTimeout(cfg.AcquireTimeout),
		frame.WithFenceTimeout(cfg.FenceTimeout),
		frame.WithClearColor(cfg.ClearColor),
	)
	if err != nil {
		releaseAll(res)
		engine.Kill()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer win.WakeOnDone(ctx)()

	err = driver.Run(ctx, win)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func createResources(engine *device.Engine, cfg config.Config) (res frame.Resources, err error) {
	defer func() {
		if err != nil {
			releaseAll(res)
		}
	}()

	if res.RenderPass, err = engine.CreateRenderPass(); err != nil {
		return res, err
	}
	if res.VertexShader, err = loadShader(engine, cfg.VertexShader, "triangle.vert.wgsl", vertexSource); err != nil {
		return res, err
	}
	if res.FragmentShader, err = loadShader(engine, cfg.FragmentShader, "triangle.frag.wgsl", fragmentSource); err != nil {
		return res, err
	}
	if res.Vertices, err = engine.CreateVertexBuffer(triangle); err != nil {
		return res, err
	}
	return res, nil
}

func loadShader(engine *device.Engine, path, builtinName string, builtin []byte) (render.ShaderModule, error) {
	if path != "" {
		return shader.Load(engine, path, entryPoint)
	}
	return shader.Create(engine, builtinName, builtin, entryPoint)
}

func releaseAll(res frame.Resources) {
	for _, r := range []render.Releaser{res.Vertices, res.FragmentShader, res.VertexShader, res.RenderPass} {
		if r != nil {
			r.Release()
		}
	}
}
