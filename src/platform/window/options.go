package window

// Option configures a Window. Use the With* functions to create options.
type Option func(w *Window)

// WithTitle sets the window title displayed in the title bar.
func WithTitle(title string) Option {
	return func(w *Window) {
		w.title = title
	}
}

// WithWidth sets the initial window width in screen coordinates.
func WithWidth(width int) Option {
	return func(w *Window) {
		w.width = width
	}
}

// WithHeight sets the initial window height in screen coordinates.
func WithHeight(height int) Option {
	return func(w *Window) {
		w.height = height
	}
}

func WithResizable(resizable bool) Option {
	return func(w *Window) {
		w.resizable = resizable
	}
}
