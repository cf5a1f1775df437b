package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"mplxls/internal/metrics"

	"github.com/google/uuid"
)

// Mode is the instruction passed to the checker ahead of the file path.
type Mode string

const (
	ModeCheck   Mode = "--check"
	ModeSymbols Mode = "--symbols"
)

func (m Mode) label() string {
	if m == ModeSymbols {
		return "symbols"
	}
	return "check"
}

// Output is everything a checker run wrote. The exit code is informative
// only: failing runs usually carry the most useful text.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs the checker over a source text.
type Runner interface {
	Run(ctx context.Context, mode Mode, text string) (Output, error)
}

// ProcessRunner runs the checker as a child process against a temporary
// copy of the text. The temporary file is removed on every path.
type ProcessRunner struct {
	Path      string
	Extension string
	Timeout   time.Duration
	TempDir   string // empty selects os.TempDir
	Metrics   *metrics.Metrics
}

func (r *ProcessRunner) Run(ctx context.Context, mode Mode, text string) (Output, error) {
	started := time.Now()
	out, err := r.run(ctx, mode, text)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, context.Canceled):
		outcome = metrics.OutcomeCanceled
	case err != nil:
		outcome = metrics.OutcomeFailed
	case len(out.Stdout) == 0 && len(out.Stderr) == 0:
		outcome = metrics.OutcomeEmpty
	}
	r.Metrics.ObserveChecker(mode.label(), outcome, time.Since(started))

	return out, err
}

func (r *ProcessRunner) run(ctx context.Context, mode Mode, text string) (Output, error) {
	path, err := r.writeTemp(text)
	if err != nil {
		return Output{}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warningf("could not remove %s: %s", path, err)
		}
	}()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Path, string(mode), path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	log.Debugf("running %s %s %s", r.Path, mode, path)
	runErr := cmd.Run()

	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("checker %s: %w", mode, ctxErr)
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return out, fmt.Errorf("failed to run checker %s: %w", r.Path, runErr)
	}
	return out, nil
}

func (r *ProcessRunner) writeTemp(text string) (string, error) {
	dir := r.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := r.Extension
	if ext == "" {
		ext = ".mplx"
	}
	path := filepath.Join(dir, "mplx_"+uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create temp source: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp source: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp source: %w", err)
	}
	return path, nil
}
