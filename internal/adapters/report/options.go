package report

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithMarkdownPath sets the markdown output path.
func WithMarkdownPath(path string) Option {
	return func(r *Renderer) {
		r.markdownPath = path
	}
}

// WithJSONPath sets the JSON output path.
func WithJSONPath(path string) Option {
	return func(r *Renderer) {
		r.jsonPath = path
	}
}
