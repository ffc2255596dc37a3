package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"
)

// backoff bounds how networked backends wait for their server on open.
type backoff struct {
	attempts int
	delay    time.Duration // doubled after each failed attempt
	timeout  time.Duration // per attempt; zero means none
}

var connectBackoff = backoff{attempts: 3, delay: time.Second, timeout: 5 * time.Second}

// ping calls fn until it succeeds or the attempts run out. Cancellation
// of ctx ends the wait at once and is returned as is.
func (b backoff) ping(ctx context.Context, fn func(context.Context) error) error {
	delay := b.delay
	var err error
	for i := 0; i < max(b.attempts, 1); i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		if err = b.try(ctx, fn); err == nil {
			return nil
		}
		if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
			return err
		}
	}
	return err
}

func (b backoff) try(ctx context.Context, fn func(context.Context) error) error {
	if b.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return fn(ctx)
}

// digest is the hex SHA-256 of data. It names file store paths and
// fingerprints stored revisions.
func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
