package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"

	"epsilon/src/render"
)

// Creator is the part of the device layer that turns SPIR-V into shader modules.
type Creator interface {
	CreateShaderModule(code []uint32) (render.ShaderModule, error)
}

// CompileWGSL compiles WGSL source to a SPIR-V module.
func CompileWGSL(source string) (*Module, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compiling wgsl: %w", err)
	}
	return Parse(code)
}

// Decode turns shader source into a module. Files named *.wgsl are compiled;
// anything else is treated as a SPIR-V binary.
func Decode(name string, src []byte) (*Module, error) {
	if strings.EqualFold(filepath.Ext(name), ".wgsl") {
		return CompileWGSL(string(src))
	}
	return Parse(src)
}

// Load reads the shader at path and creates a device module from it. The
// module must export every entry point listed in require.
func Load(creator Creator, path string, require ...string) (render.ShaderModule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shader: %w", err)
	}
	return Create(creator, path, src, require...)
}

// Create decodes src and creates a device module from it. name is only used
// to pick the source language and in errors.
func Create(creator Creator, name string, src []byte, require ...string) (render.ShaderModule, error) {
	m, err := Decode(name, src)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	for _, ep := range require {
		if !m.HasEntryPoint(ep) {
			return nil, fmt.Errorf("shader %s entry point %q: %w", name, ep, render.ErrMissingEntryPoint)
		}
	}

	module, err := creator.CreateShaderModule(m.Words)
	if err != nil {
		return nil, fmt.Errorf("creating shader module %s: %w", name, err)
	}
	render.Logger().Debug("shader module created", "name", name, "words", len(m.Words), "entry_points", m.EntryPoints)
	return module, nil
}
