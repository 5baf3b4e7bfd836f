package idb

import "log/slog"

// Options configures a Database.
type Options struct {
	// Dir holds one SQLite file per database. Empty means an in-memory
	// database shared by handles of the same name in this process.
	Dir string

	// MaxReaders caps concurrent readonly connections. Zero means no cap.
	MaxReaders int

	// Logger receives engine diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "idb")
}
