package render

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	assert.True(t, Size{}.IsZero())
	assert.True(t, Size{Width: 800}.IsZero())
	assert.True(t, Size{Height: 600}.IsZero())
	assert.False(t, Size{Width: 1, Height: 1}.IsZero())
	assert.Equal(t, "800x600", Size{Width: 800, Height: 600}.String())
}

func TestVertexStride(t *testing.T) {
	assert.Equal(t, uint32(8), VertexStride)
}

type releaseCounter struct {
	n *int
}

func (r releaseCounter) Release() { *r.n++ }

func TestFramebufferSetRelease(t *testing.T) {
	var n int
	set := FramebufferSet{Framebuffers: []Framebuffer{releaseCounter{&n}, nil, releaseCounter{&n}}}
	assert.Equal(t, 3, set.Len())
	set.Release()
	assert.Equal(t, 2, n)

	FramebufferSet{}.Release()
}

func TestPipelineRelease(t *testing.T) {
	var n int
	(&Pipeline{Handle: releaseCounter{&n}}).Release()
	assert.Equal(t, 1, n)

	var p *Pipeline
	require.NotPanics(t, p.Release)
	require.NotPanics(t, (&Pipeline{}).Release)
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Info("swapchain rebuilt", "extent", Size{Width: 4, Height: 3})
	assert.Contains(t, buf.String(), "extent=4x3")

	SetLogger(nil)
	buf.Reset()
	Logger().Error("dropped")
	assert.Empty(t, buf.String())
}
