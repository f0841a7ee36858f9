package device

type engineConfig struct {
	applicationName string
	validation      bool
	validationLayer string
	vsync           bool
}

func defaultConfig() engineConfig {
	return engineConfig{
		applicationName: "epsilon",
		validationLayer: "VK_LAYER_KHRONOS_validation",
	}
}

// EngineOption configures an Engine. Use the With* functions to create options.
type EngineOption func(c *engineConfig)

func WithApplicationName(name string) EngineOption {
	return func(c *engineConfig) {
		c.applicationName = name
	}
}

// WithValidation enables the Khronos validation layer. Engine creation fails
// when the layer is not installed.
func WithValidation(enabled bool) EngineOption {
	return func(c *engineConfig) {
		c.validation = enabled
	}
}

// WithVSync forces FIFO presentation instead of preferring mailbox.
func WithVSync(enabled bool) EngineOption {
	return func(c *engineConfig) {
		c.vsync = enabled
	}
}
