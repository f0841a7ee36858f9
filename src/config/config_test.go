package config

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	c.RegisterFlags(fs)
	err := fs.Parse(args)
	return c, err
}

func TestDefaultIsValid(t *testing.T) {
	c, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.NoError(t, c.Validate())
}

func TestFlags(t *testing.T) {
	c, err := parse(t,
		"-title", "tri",
		"-width", "640",
		"-height", "480",
		"-vertex-shader", "a.wgsl",
		"-fragment-shader", "b.spv",
		"-validation",
		"-vsync=false",
		"-acquire-timeout", "0",
		"-fence-timeout", "250ms",
		"-clear-color", "0.1, 0.2, 0.3",
		"-log-level", "debug",
	)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "tri", c.Title)
	assert.Equal(t, 640, c.Width)
	assert.Equal(t, 480, c.Height)
	assert.Equal(t, "a.wgsl", c.VertexShader)
	assert.Equal(t, "b.spv", c.FragmentShader)
	assert.True(t, c.Validation)
	assert.False(t, c.VSync)
	assert.Zero(t, c.AcquireTimeout)
	assert.Equal(t, 250*time.Millisecond, c.FenceTimeout)
	assert.Equal(t, Color{0.1, 0.2, 0.3, 1}, c.ClearColor)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
}

func TestBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"-clear-color", "1,2"},
		{"-clear-color", "a,b,c"},
		{"-log-level", "loud"},
		{"-fence-timeout", "soon"},
	} {
		_, err := parse(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero width":       func(c *Config) { c.Width = 0 },
		"negative height":  func(c *Config) { c.Height = -1 },
		"negative acquire": func(c *Config) { c.AcquireTimeout = -time.Second },
		"negative fence":   func(c *Config) { c.FenceTimeout = -time.Second },
		"lone shader":      func(c *Config) { c.VertexShader = "v.wgsl" },
		"color range":      func(c *Config) { c.ClearColor[2] = 1.5 },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestColorString(t *testing.T) {
	c := Color{0.5, 0, 1, 1}
	assert.Equal(t, "0.5,0,1,1", c.String())

	var nilColor *Color
	assert.Empty(t, nilColor.String())
}
