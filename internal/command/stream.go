package command

import (
	"bytes"
	"context"
	"log/slog"

	"git.home.luguber.info/inful/appstrap/internal/logfields"
)

// lineLogger is an io.Writer that logs each complete line of a command's
// output stream at debug level.
type lineLogger struct {
	logger  *slog.Logger
	command string
	stream  string
	pending []byte
}

func newLineLogger(logger *slog.Logger, command, stream string) *lineLogger {
	return &lineLogger{logger: logger, command: command, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	if !l.logger.Enabled(context.Background(), slog.LevelDebug) {
		return len(p), nil
	}
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		l.emit(l.pending[:i])
		l.pending = l.pending[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line, if any.
func (l *lineLogger) Flush() {
	if len(l.pending) > 0 {
		l.emit(l.pending)
		l.pending = nil
	}
}

func (l *lineLogger) emit(line []byte) {
	l.logger.Debug(string(bytes.TrimRight(line, "\r")),
		logfields.Command(l.command),
		slog.String("stream", l.stream))
}
