package console

import "log/slog"

// Tone classifies a status message.
type Tone string

const (
	ToneInfo    Tone = "info"
	ToneOK      Tone = "ok"
	ToneWarn    Tone = "warn"
	ToneLoading Tone = "loading"
)

// Status is a user-visible outcome or progress message. Loading statuses
// report progress; every other tone ends an operation.
type Status struct {
	Tone    Tone
	Message string
}

// Terminal reports whether s ends an operation.
func (s Status) Terminal() bool { return s.Tone != ToneLoading }

// Notifier receives status messages.
type Notifier interface {
	Notify(Status)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Status)

func (f NotifierFunc) Notify(s Status) { f(s) }

type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(s Status) {
	n.logger.Info(s.Message, slog.String("tone", string(s.Tone)))
}
