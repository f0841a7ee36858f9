package device

import (
	"fmt"
	"path/filepath"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

type stackFrame struct {
	file     string
	line     int
	function string
}

func newStackFrame(pc uintptr, file string, line int) stackFrame {
	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = filepath.Base(fn.Name())
	}
	return stackFrame{file: filepath.Base(file), line: line, function: name}
}

func (f stackFrame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.function, f.file, f.line)
}

// NewError converts a failed vulkan result into an error annotated with the
// calling function. Success maps to nil.
func NewError(retVal vk.Result) error {
	if !IsError(retVal) {
		return nil
	}
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("vulkan error: %w (%d)", vk.Error(retVal), retVal)
	}
	return fmt.Errorf("vulkan error: %w (%d) on %s",
		vk.Error(retVal), retVal, newStackFrame(pc, file, line))
}

// IsError reports whether retVal is an error code. Positive status codes
// such as Suboptimal or Timeout are not errors.
func IsError(retVal vk.Result) bool {
	return retVal < vk.Success
}
