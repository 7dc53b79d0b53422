// Package snippet turns sandboxed runs into playground transcripts.
//
// It is the layer user-facing surfaces talk to: give it snippet source,
// get back the text a learner should see. Raw engine results stay in
// the sandbox package; this one decides how console output and failures
// read on screen.
package snippet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/rkshawon/interprep/internal/logging"
	"github.com/rkshawon/interprep/internal/sandbox"
)

// Outcome is the full result of one snippet run.
type Outcome struct {
	// Output is the rendered transcript, or the single failure line
	Output   string
	OK       bool
	Duration time.Duration
	Lines    int
}

// Evaluator runs snippets against a runtime pool and renders their
// output.
type Evaluator struct {
	pool   *sandbox.Pool
	logger *logging.Logger
}

// New creates an evaluator backed by the given pool.
func New(pool *sandbox.Pool, logger *logging.Logger) *Evaluator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Evaluator{
		pool:   pool,
		logger: logger.Named("snippet"),
	}
}

// Evaluate runs source and always returns printable output. Failures
// of any kind collapse into a single "Error: <reason>" line, so the
// caller can hand the result straight to a display without an error
// path of its own.
func (e *Evaluator) Evaluate(ctx context.Context, source string) string {
	out, err := e.Run(ctx, source)
	if err != nil {
		return "Error: " + firstLine(err.Error())
	}
	return out.Output
}

// Run executes source and reports the outcome. The returned error is
// reserved for infrastructure problems such as an exhausted pool;
// snippet failures come back as a non-OK outcome instead.
func (e *Evaluator) Run(ctx context.Context, source string) (*Outcome, error) {
	result, err := e.pool.Execute(ctx, source)
	if result == nil {
		return nil, fmt.Errorf("acquire runtime: %w", err)
	}

	out := &Outcome{Duration: result.Duration}
	if result.Error != nil {
		// Whatever was logged before the failure is dropped, the
		// transcript is the error line alone
		out.Output = "Error: " + result.Error.Message
		out.Lines = 1
	} else {
		out.OK = true
		out.Output = renderTranscript(result.Console)
		if out.Output != "" {
			out.Lines = strings.Count(out.Output, "\n") + 1
		}
	}

	e.logger.Debug("snippet evaluated",
		zap.Bool("ok", out.OK),
		zap.Int("lines", out.Lines),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

// Check compiles source without running it, using the same wrapper the
// runtime executes so top-level await and return stay legal. A nil
// return means the snippet parses.
func (e *Evaluator) Check(source string) error {
	if _, err := goja.Compile(sandbox.ScriptName, sandbox.Wrap(source), false); err != nil {
		return &sandbox.RunError{Kind: sandbox.ErrSyntax, Message: firstLine(err.Error())}
	}
	return nil
}

// renderTranscript formats captured console entries the way the
// playground showed them: errors and warnings keep a prefix, everything
// else prints as written.
func renderTranscript(entries []sandbox.LogEntry) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, len(entries))
	for i, entry := range entries {
		switch entry.Level {
		case "error":
			lines[i] = "Error: " + entry.Message
		case "warn":
			lines[i] = "Warning: " + entry.Message
		default:
			lines[i] = entry.Message
		}
	}
	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
