// Package shader loads SPIR-V shader modules and reflects their entry points.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// Magic is the first word of every SPIR-V module.
const Magic = 0x07230203

const (
	headerWords   = 5
	opEntryPoint  = 15
	wordCountMask = 0xffff
)

var (
	ErrInvalidMagic = errors.New("spirv: invalid magic number")
	ErrMalformed    = errors.New("spirv: malformed module")
)

type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
)

func (m ExecutionModel) String() string {
	switch m {
	case ExecutionModelVertex:
		return "vertex"
	case ExecutionModelTessellationControl:
		return "tessellation-control"
	case ExecutionModelTessellationEvaluation:
		return "tessellation-evaluation"
	case ExecutionModelGeometry:
		return "geometry"
	case ExecutionModelFragment:
		return "fragment"
	case ExecutionModelGLCompute:
		return "compute"
	}
	return fmt.Sprintf("ExecutionModel(%d)", uint32(m))
}

type EntryPoint struct {
	Model ExecutionModel
	Name  string
}

// Module is a decoded SPIR-V binary in host word order.
type Module struct {
	Words       []uint32
	EntryPoints []EntryPoint
}

// HasEntryPoint reports whether the module exports name for any execution model.
func (m *Module) HasEntryPoint(name string) bool {
	for _, ep := range m.EntryPoints {
		if ep.Name == name {
			return true
		}
	}
	return false
}

// Parse decodes a SPIR-V binary. Both byte orders are accepted; the words
// of the returned module are always in host order.
func Parse(code []byte) (*Module, error) {
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words", ErrMalformed, len(code))
	}
	if len(code) < headerWords*4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(code))
	}

	order := binary.ByteOrder(binary.LittleEndian)
	switch order.Uint32(code) {
	case Magic:
	case bits.ReverseBytes32(Magic):
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, binary.LittleEndian.Uint32(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = order.Uint32(code[i*4:])
	}
	entryPoints, err := Reflect(words)
	if err != nil {
		return nil, err
	}
	return &Module{Words: words, EntryPoints: entryPoints}, nil
}

// Reflect walks the instruction stream of a host-order module and returns its
// OpEntryPoint declarations.
func Reflect(words []uint32) ([]EntryPoint, error) {
	if len(words) < headerWords {
		return nil, fmt.Errorf("%w: %d words is shorter than the header", ErrMalformed, len(words))
	}
	if words[0] != Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, words[0])
	}

	var out []EntryPoint
	for i := headerWords; i < len(words); {
		count := int(words[i] >> 16)
		opcode := words[i] & wordCountMask
		if count == 0 || i+count > len(words) {
			return nil, fmt.Errorf("%w: instruction at word %d has length %d", ErrMalformed, i, count)
		}
		if opcode == opEntryPoint {
			// model, function id, literal name, interface ids...
			if count < 4 {
				return nil, fmt.Errorf("%w: OpEntryPoint at word %d too short", ErrMalformed, i)
			}
			name, ok := literalString(words[i+3 : i+count])
			if !ok {
				return nil, fmt.Errorf("%w: unterminated entry point name at word %d", ErrMalformed, i)
			}
			out = append(out, EntryPoint{Model: ExecutionModel(words[i+1]), Name: name})
		}
		i += count
	}
	return out, nil
}

// literalString decodes a nul-terminated UTF-8 literal packed little-endian
// into words.
func literalString(words []uint32) (string, bool) {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf), true
			}
			buf = append(buf, b)
		}
	}
	return "", false
}
