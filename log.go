package miditoolkit

import "go.uber.org/zap"

// The library is otherwise synchronous and allocation-light like the
// teacher (github.com/yalue/midi never logs), but the disk source runs a
// background I/O goroutine whose read failures are worth being able to
// observe in a host
// process, the way zfogg-sidechain/backend threads a *zap.Logger through
// its internal/handlers and middleware. Defaults to a no-op logger so
// library use never produces output unless a caller opts in.
var logger = zap.NewNop()

// SetLogger overrides the package-level logger used for background
// goroutine diagnostics (currently only the disk I/O goroutine's read
// failures; never on the per-event hot path).
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
