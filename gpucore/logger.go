package gpucore

import "log"

// Logger is the narrow logging seam the core depends on. It defaults to the
// standard library's log.Default() (spec's ambient stack: the teacher repo
// carries no third-party logging library across its whole dependency set —
// grep of every go.mod in the retrieved pack turns up none — so gpucore
// follows suit rather than introducing one just for this package; see
// DESIGN.md). Callers that want structured logging can supply any type
// satisfying this one-method interface.
type Logger interface {
	Printf(format string, args ...any)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, args ...any) { log.Printf(format, args...) }

// defaultLogger returns the package-level log.Default()-backed Logger used
// when a Core is constructed without one.
func defaultLogger() Logger { return stdLogger{} }
