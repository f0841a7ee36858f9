package shader

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epsilon/src/render"
	"epsilon/src/render/rendertest"
)

func packString(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

// assemble builds a minimal module: header, OpCapability Shader and one
// OpEntryPoint per entry.
func assemble(eps ...EntryPoint) []uint32 {
	words := []uint32{Magic, 0x00010000, 0, 16, 0}
	words = append(words, 2<<16|17, 1)
	for i, ep := range eps {
		name := packString(ep.Name)
		words = append(words, uint32(4+len(name))<<16|opEntryPoint, uint32(ep.Model), uint32(i+1))
		words = append(words, name...)
		words = append(words, 12)
	}
	return words
}

func encode(words []uint32, order binary.ByteOrder) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		order.PutUint32(out[i*4:], w)
	}
	return out
}

func TestParse(t *testing.T) {
	eps := []EntryPoint{
		{Model: ExecutionModelVertex, Name: "main"},
		{Model: ExecutionModelFragment, Name: "fs_main"},
	}
	words := assemble(eps...)

	for name, order := range map[string]binary.ByteOrder{
		"little endian": binary.LittleEndian,
		"big endian":    binary.BigEndian,
	} {
		t.Run(name, func(t *testing.T) {
			m, err := Parse(encode(words, order))
			require.NoError(t, err)
			assert.Equal(t, words, m.Words)
			assert.Equal(t, eps, m.EntryPoints)
			assert.True(t, m.HasEntryPoint("main"))
			assert.True(t, m.HasEntryPoint("fs_main"))
			assert.False(t, m.HasEntryPoint("missing"))
		})
	}
}

func TestParseErrors(t *testing.T) {
	valid := encode(assemble(EntryPoint{Name: "main"}), binary.LittleEndian)

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 0xff

	zeroLength := encode(append(assemble(), 0|opEntryPoint), binary.LittleEndian)
	overrun := encode(append(assemble(), 9<<16|opEntryPoint, 0, 1), binary.LittleEndian)
	shortEntry := encode(append(assemble(), 3<<16|opEntryPoint, 0, 1), binary.LittleEndian)
	unterminated := encode(append(assemble(), 4<<16|opEntryPoint, 0, 1, 0x6e69616d), binary.LittleEndian)

	for _, tc := range []struct {
		name string
		code []byte
		want error
	}{
		{"empty", nil, ErrMalformed},
		{"unaligned", valid[:len(valid)-1], ErrMalformed},
		{"short header", valid[:8], ErrMalformed},
		{"bad magic", badMagic, ErrInvalidMagic},
		{"zero length instruction", zeroLength, ErrMalformed},
		{"instruction overruns module", overrun, ErrMalformed},
		{"entry point too short", shortEntry, ErrMalformed},
		{"unterminated name", unterminated, ErrMalformed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.code)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReflect(t *testing.T) {
	eps, err := Reflect(assemble(EntryPoint{Model: ExecutionModelGLCompute, Name: "a_rather_long_entry_point"}))
	require.NoError(t, err)
	require.Equal(t, []EntryPoint{{Model: ExecutionModelGLCompute, Name: "a_rather_long_entry_point"}}, eps)

	eps, err = Reflect(assemble())
	require.NoError(t, err)
	require.Empty(t, eps)

	_, err = Reflect([]uint32{Magic})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestExecutionModelString(t *testing.T) {
	assert.Equal(t, "vertex", ExecutionModelVertex.String())
	assert.Equal(t, "fragment", ExecutionModelFragment.String())
	assert.Equal(t, "ExecutionModel(42)", ExecutionModel(42).String())
}

type failingCreator struct{}

func (failingCreator) CreateShaderModule([]uint32) (render.ShaderModule, error) {
	return nil, errors.New("out of memory")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.vert.spv")
	require.NoError(t, os.WriteFile(path, encode(assemble(EntryPoint{Name: "main"}), binary.LittleEndian), 0o644))

	dev := rendertest.NewDevice(render.Size{Width: 1, Height: 1}, 1)
	m, err := Load(dev, path, "main")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, []string{"create shader module"}, dev.Ops)

	_, err = Load(dev, path, "main", "fs_main")
	require.ErrorIs(t, err, render.ErrMissingEntryPoint)

	_, err = Load(dev, filepath.Join(dir, "missing.spv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(failingCreator{}, path)
	require.ErrorContains(t, err, "out of memory")
}

const vertexWGSL = `
@vertex
fn main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 0.0, 1.0);
}
`

func TestCompileWGSL(t *testing.T) {
	m, err := CompileWGSL(vertexWGSL)
	require.NoError(t, err)
	require.Equal(t, uint32(Magic), m.Words[0])
	require.Contains(t, m.EntryPoints, EntryPoint{Model: ExecutionModelVertex, Name: "main"})

	dev := rendertest.NewDevice(render.Size{Width: 1, Height: 1}, 1)
	_, err = Create(dev, "triangle.WGSL", []byte(vertexWGSL), "main")
	require.NoError(t, err)

	_, err = CompileWGSL("fn main( {")
	require.Error(t, err)
}
