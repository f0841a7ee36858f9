// Package config holds the settings of the triangle program and binds them to
// command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Title  string
	Width  int
	Height int

	// VertexShader and FragmentShader are paths to .wgsl or SPIR-V files.
	// Empty selects the built-in shaders.
	VertexShader   string
	FragmentShader string

	Validation bool
	VSync      bool

	AcquireTimeout time.Duration
	FenceTimeout   time.Duration

	ClearColor Color
	LogLevel   slog.Level
}

func Default() Config {
	return Config{
		Title:          "epsilon",
		Width:          1024,
		Height:         1024,
		VSync:          true,
		AcquireTimeout: time.Second,
		FenceTimeout:   time.Second,
		ClearColor:     Color{0, 0, 0, 1},
		LogLevel:       slog.LevelInfo,
	}
}

// RegisterFlags binds every field to a flag on fs, using the current values
// as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Title, "title", c.Title, "window title")
	fs.IntVar(&c.Width, "width", c.Width, "initial window width")
	fs.IntVar(&c.Height, "height", c.Height, "initial window height")
	fs.StringVar(&c.VertexShader, "vertex-shader", c.VertexShader, "vertex shader `path` (.wgsl or .spv), empty for built-in")
	fs.StringVar(&c.FragmentShader, "fragment-shader", c.FragmentShader, "fragment shader `path` (.wgsl or .spv), empty for built-in")
	fs.BoolVar(&c.Validation, "validation", c.Validation, "enable the khronos validation layer")
	fs.BoolVar(&c.VSync, "vsync", c.VSync, "present in fifo mode")
	fs.DurationVar(&c.AcquireTimeout, "acquire-timeout", c.AcquireTimeout, "swapchain image acquire timeout, 0 waits forever")
	fs.DurationVar(&c.FenceTimeout, "fence-timeout", c.FenceTimeout, "frame completion timeout, 0 waits forever")
	fs.Var(&c.ClearColor, "clear-color", "clear color as `r,g,b,a`")
	fs.TextVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
}

func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height))
	}
	if c.AcquireTimeout < 0 {
		errs = append(errs, fmt.Errorf("acquire timeout %s is negative", c.AcquireTimeout))
	}
	if c.FenceTimeout < 0 {
		errs = append(errs, fmt.Errorf("fence timeout %s is negative", c.FenceTimeout))
	}
	if (c.VertexShader == "") != (c.FragmentShader == "") {
		errs = append(errs, errors.New("vertex and fragment shaders must be overridden together"))
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear color component %d is %g, outside [0,1]", i, v))
		}
	}
	return errors.Join(errs...)
}

// Color is an RGBA clear color in linear [0,1] components.
type Color [4]float32

func (c *Color) String() string {
	if c == nil {
		return ""
	}
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// Set parses "r,g,b" or "r,g,b,a". Alpha defaults to 1.
func (c *Color) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return fmt.Errorf("color %q: want 3 or 4 components", s)
	}
	out := Color{0, 0, 0, 1}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("color %q: %w", s, err)
		}
		out[i] = float32(v)
	}
	*c = out
	return nil
}
