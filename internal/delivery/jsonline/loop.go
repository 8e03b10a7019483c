package jsonline

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"confdesk/internal/domain"
	"confdesk/internal/repository/postgres"
)

// SessionOpener evaluates the session-establishing command: it opens the
// session named by the arguments and reports the open status.
type SessionOpener func(ctx context.Context, args domain.Args) (*postgres.Session, *domain.Result)

// Loop is the strictly sequential session loop: one input line is fully
// resolved, executed, and answered before the next is read. Exactly one
// result line is emitted per input line; end of input is the only
// termination signal.
type Loop struct {
	dispatcher *Dispatcher
	opener     SessionOpener
	log        *slog.Logger
}

func NewLoop(dispatcher *Dispatcher, opener SessionOpener, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{dispatcher: dispatcher, opener: opener, log: logger}
}

// Run reads lines from in until EOF. Only the first line can establish the
// loop's session; when it fails to (or is not an "open" at all), every
// command after it answers with a connection error. A later "open" line
// still reports its own open status, but the session it produced is
// discarded.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	var sess *postgres.Session
	defer func() { sess.Close() }()

	first := true
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		start := time.Now()
		inv := l.dispatcher.Resolve(scanner.Bytes())

		var res *domain.Result
		if inv.Open {
			opened, openRes := l.opener(ctx, inv.Args)
			res = openRes
			if first {
				sess = opened
			} else if opened != nil {
				opened.Close()
			}
		} else {
			res = inv.Run(ctx, sess)
		}
		first = false

		if err := enc.Encode(res); err != nil {
			return err
		}
		l.log.Info("command",
			"line", lineNo,
			"name", inv.Name,
			"status", res.Status.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	l.log.Info("input stream ended", "lines", lineNo)
	return scanner.Err()
}
