package notify

import "log/slog"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient, user-visible message. Notices are best-effort
// observability for the presentation layer, not correctness-critical.
type Notice struct {
	Level   Level
	Message string
}

type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to the Notifier interface.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Discard drops all notices.
var Discard Notifier = Func(func(Notice) {})

// SlogNotifier logs notices instead of rendering them; used by headless
// consumers such as the CLI.
type SlogNotifier struct {
	Logger *slog.Logger
}

func (s *SlogNotifier) Notify(n Notice) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notice", "level", string(n.Level), "message", n.Message)
}
