package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rerun-tv/rerun/internal/logger"
)

// Breaker settings for the probe circuit
const (
	probeFailureThreshold = 5
	probeResetTimeout     = 30 * time.Second
)

// Common probe errors
var (
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH")
	ErrProbeFailed     = errors.New("could not determine media duration")
	ErrProbeTimeout    = errors.New("ffprobe execution timed out")
)

// Prober measures the playable duration of a media file in whole seconds
type Prober interface {
	Probe(ctx context.Context, path string) (int64, error)
}

// CheckFFprobeInstalled checks if ffprobe is available in PATH
func CheckFFprobeInstalled() error {
	_, err := exec.LookPath("ffprobe")
	if err != nil {
		return ErrFFprobeNotFound
	}
	return nil
}

// FFProbe shells out to ffprobe for container-level duration. Calls run
// behind a circuit breaker so a missing or hung ffprobe fails fast instead
// of stalling a scan for its full timeout on every file.
type FFProbe struct {
	timeout time.Duration
	breaker *CircuitBreaker
}

// NewFFProbe creates a prober with the given per-file timeout
func NewFFProbe(timeout time.Duration) *FFProbe {
	return &FFProbe{
		timeout: timeout,
		breaker: NewCircuitBreaker(probeFailureThreshold, probeResetTimeout),
	}
}

// Probe returns the duration of the file at path in seconds
func (p *FFProbe) Probe(ctx context.Context, path string) (int64, error) {
	var seconds int64
	err := p.breaker.Call(func() error {
		var probeErr error
		seconds, probeErr = p.probe(ctx, path)
		return probeErr
	})
	if err != nil {
		return 0, err
	}
	return seconds, nil
}

func (p *FFProbe) probe(ctx context.Context, path string) (int64, error) {
	if err := CheckFFprobeInstalled(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			logger.Log.Warn().
				Str("file_path", path).
				Dur("timeout", p.timeout).
				Msg("ffprobe execution timed out")
			return 0, ErrProbeTimeout
		}

		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			logger.Log.Warn().
				Str("file_path", path).
				Str("stderr", stderr).
				Msg("ffprobe execution failed")
			return 0, fmt.Errorf("%w: %s", ErrProbeFailed, stderr)
		}

		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	raw := strings.TrimSpace(string(output))
	durationFloat, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable ffprobe output %q", ErrProbeFailed, raw)
	}

	seconds := int64(math.Round(durationFloat))
	if seconds < 1 {
		seconds = 1
	}

	logger.Log.Debug().
		Str("file_path", path).
		Int64("duration", seconds).
		Msg("Probed media duration")

	return seconds, nil
}
