// Package retryop provides a generic exponential-backoff retry helper for
// the data-retrieval layer's network collaborators (remote object-store
// fetch, upstream-API download): operations outside the core's own
// single-threaded, CPU-bound pipeline (§5), where transient I/O failures are
// expected and worth retrying.
package retryop

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config controls the backoff schedule.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

// DefaultConfig provides sensible defaults for retrying a single network
// call.
var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

func (c Config) sanitize() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultConfig.MaxRetries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultConfig.MaxBackoff
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig.Timeout
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	return c
}

// Op is a single attempt at the retried operation.
type Op func(ctx context.Context) error

// Do runs op, retrying on transient errors (per IsTransient) with
// exponential backoff and jitter, up to cfg.MaxRetries additional attempts
// bounded by cfg.Timeout overall. A nil logger is replaced with a
// discard-everything logger.
func Do(ctx context.Context, cfg Config, logger *logrus.Logger, label string, op Op) error {
	cfg = cfg.sanitize()
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(nilWriter{})
	}

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if opCtx.Err() != nil {
			return fmt.Errorf("%s: timed out after %v: %w", label, cfg.Timeout, opCtx.Err())
		}

		logger.WithFields(logrus.Fields{"op": label, "attempt": attempt + 1, "of": cfg.MaxRetries + 1}).Debug("attempting operation")

		err := op(opCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.WithFields(logrus.Fields{"op": label, "attempt": attempt + 1, "error": err}).Warn("operation attempt failed")

		if !IsTransient(err) || attempt == cfg.MaxRetries {
			break
		}

		logger.WithFields(logrus.Fields{"op": label, "backoff": backoff}).Debug("retrying after backoff")
		select {
		case <-time.After(backoff):
			backoff = nextBackoff(backoff, cfg.MaxBackoff)
		case <-opCtx.Done():
			return fmt.Errorf("%s: timed out during backoff: %w", label, opCtx.Err())
		case <-ctx.Done():
			return fmt.Errorf("%s: canceled during backoff: %w", label, ctx.Err())
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", label, cfg.MaxRetries+1, lastErr)
}

func nextBackoff(current, max time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > max {
		backoff = max
	}
	if maxJitter := int64(backoff / 4); maxJitter > 0 {
		if jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter)); err == nil {
			backoff += time.Duration(jitterVal.Int64())
		}
	}
	return backoff
}

// transientPatterns are substrings of network/I-O errors worth retrying;
// anything else (schema errors, validation errors, 4xx other than 429) is
// treated as permanent.
var transientPatterns = []string{
	"timeout",
	"i/o timeout",
	"connection refused",
	"connection reset",
	"temporary failure",
	"temporarily unavailable",
	"server error",
	"rate limit",
	"429",
	"502",
	"503",
	"504",
	"network",
	"dns",
	"tcp",
	"no such host",
	"deadline exceeded",
	"tls handshake",
	"broken pipe",
	"eof",
}

// IsTransient reports whether err looks like a transient network/I-O
// failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
