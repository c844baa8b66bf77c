package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so log
// pipelines can index the financial fields (account_id, request_id, amounts).
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Discard returns a logger that drops everything; used in tests that don't
// assert on log output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
