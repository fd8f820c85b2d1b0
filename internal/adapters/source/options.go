package source

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithCandidatesPath sets the candidate catalog CSV path.
func WithCandidatesPath(path string) Option {
	return func(l *Loader) {
		l.candidatesPath = path
	}
}

// WithInteractionsPath sets the interaction history CSV path.
func WithInteractionsPath(path string) Option {
	return func(l *Loader) {
		l.interactionsPath = path
	}
}

// WithProfilesPath sets the user profile JSON path.
func WithProfilesPath(path string) Option {
	return func(l *Loader) {
		l.profilesPath = path
	}
}

// WithCandidateColumns remaps logical candidate column names to CSV headers.
func WithCandidateColumns(columns map[string]string) Option {
	return func(l *Loader) {
		for logical, header := range columns {
			l.columns[logical] = header
		}
	}
}
