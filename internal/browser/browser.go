// Package browser wraps the headless browser session and the element
// location logic the reservation workflow is built on.
package browser

import (
	"context"
	"fmt"
	"strings"
)

// Condition describes what a selector has to satisfy for an element to
// count as found.
type Condition string

const (
	// CondPresent is satisfied as soon as the element exists in the DOM.
	CondPresent Condition = "present"
	// CondVisible additionally requires the element to be rendered.
	CondVisible Condition = "visible"
	// CondClickable requires the element to be visible and not disabled.
	CondClickable Condition = "clickable"
)

// A Session is a handle to a running browser with a current page. All
// methods that touch the page take a context so that a dying process can
// cut the run short. Implementations must make Close safe to call more
// than once.
type Session interface {
	// Navigate loads the given url in the current page.
	Navigate(ctx context.Context, url string) error
	// Check reports whether an element matching selector currently
	// satisfies the condition. It never waits; polling is the locator's
	// job.
	Check(ctx context.Context, selector string, cond Condition) (bool, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Type clears the first element matching selector and types value
	// into it.
	Type(ctx context.Context, selector string, value string) error
	// PageSource returns the current page's html.
	PageSource(ctx context.Context) (string, error)
	// Close releases the browser. No method may be called afterwards.
	Close() error
}

// A Screenshotter can capture the current page, for debugging.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// SessionError indicates that the browser session could not be started or
// broke down mid-run.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser session error during %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// isXPath decides how a selector string addresses elements. Everything is
// treated as a CSS selector except expressions starting with a slash or a
// parenthesis, eg the default time slot selector.
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}
