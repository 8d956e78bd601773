package session

import "github.com/rs/zerolog"

type options struct {
	logger   zerolog.Logger
	onChange func(Snapshot)
	onError  func(error)
}

// Option configures a Session.
type Option func(*options)

// WithLogger replaces the default "session" component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOnChange sets a callback invoked with a fresh snapshot after every
// inbound frame that changed the roster or the log. It runs on the
// delivering goroutine, outside the session lock.
func WithOnChange(fn func(Snapshot)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// WithOnError sets a callback for recoverable failures: undecodable inbound
// frames and failed sends.
func WithOnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
