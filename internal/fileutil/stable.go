package fileutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrUnstable reports that a file never became ready within the wait bound.
var ErrUnstable = errors.New("file not stable")

// StabilityOptions bounds WaitStable.
type StabilityOptions struct {
	Interval time.Duration
	// Checks is the number of consecutive unchanged size readings required.
	Checks  int
	Timeout time.Duration
}

func (o StabilityOptions) withDefaults() StabilityOptions {
	if o.Interval <= 0 {
		o.Interval = 200 * time.Millisecond
	}
	if o.Checks <= 0 {
		o.Checks = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return o
}

// WaitStable fsyncs path and then polls its size until it is unchanged for
// the configured number of consecutive checks. Reaching the timeout is only
// an error when the file is missing or empty; a non-empty file whose size is
// still moving is returned as-is with its latest size.
func WaitStable(ctx context.Context, path string, opts StabilityOptions) (int64, error) {
	opts = opts.withDefaults()
	if err := Sync(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	last := int64(-1)
	unchanged := 0
	for {
		size := int64(-1)
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		if size > 0 && size == last {
			unchanged++
			if unchanged >= opts.Checks {
				return size, nil
			}
		} else {
			unchanged = 0
		}
		last = size

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline.C:
			if last <= 0 {
				return 0, fmt.Errorf("%w: %s missing or empty after %s", ErrUnstable, path, opts.Timeout)
			}
			return last, nil
		case <-ticker.C:
		}
	}
}
