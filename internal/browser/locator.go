package browser

import (
	"context"
	"fmt"
	"time"
)

const defaultPollInterval = 200 * time.Millisecond

// ElementNotFoundError is returned when a selector did not satisfy its
// condition within the wait window. It is the single "thing wasn't there"
// failure surfaced to the workflow.
type ElementNotFoundError struct {
	Selector  string
	Condition Condition
	Elapsed   time.Duration
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element matching '%s' satisfied condition '%s' within %v", e.Selector, e.Condition, e.Elapsed)
}

// Locator waits for elements by polling the DOM at a fixed interval. It
// never retries beyond the given timeout; whether to keep going is the
// workflow's decision.
type Locator struct {
	Interval time.Duration
}

func NewLocator(interval time.Duration) *Locator {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Locator{Interval: interval}
}

// WaitFor polls the session until an element matching selector satisfies
// cond or timeout elapses. The deadline is enforced on the monotonic
// clock; the check right at the deadline still counts, anything after it
// does not. On expiry an ElementNotFoundError is returned; session errors
// abort immediately.
func (l *Locator) WaitFor(ctx context.Context, s Session, selector string, cond Condition, timeout time.Duration) error {
	start := time.Now()
	deadline := start.Add(timeout)
	for {
		ok, err := s.Check(ctx, selector, cond)
		if err != nil {
			return fmt.Errorf("condition check failed for '%s': %w", selector, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &ElementNotFoundError{Selector: selector, Condition: cond, Elapsed: time.Since(start)}
		}
		wait := l.Interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
