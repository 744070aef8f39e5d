package browser

import (
	"context"
	"fmt"
	"time"
)

// MockElement describes an element the MockSession pretends to have on
// its current page.
type MockElement struct {
	Hidden   bool
	Disabled bool
	// AppearsAfter delays the element's existence relative to the
	// session's creation, to exercise waits.
	AppearsAfter time.Duration
}

// MockSession implements Session in memory, recording every interaction.
type MockSession struct {
	Elements    map[string]MockElement
	Source      string
	NavigateErr error
	CheckErr    error
	Navigated   []string
	Clicks      []string
	Typed       map[string]string
	CloseCount  int

	start time.Time
}

func NewMockSession() *MockSession {
	return &MockSession{
		Elements: map[string]MockElement{},
		Typed:    map[string]string{},
		start:    time.Now(),
	}
}

// AddElement makes an element matching selector available on the page.
func (m *MockSession) AddElement(selector string, e MockElement) {
	m.Elements[selector] = e
}

func (m *MockSession) Navigate(_ context.Context, url string) error {
	if m.NavigateErr != nil {
		return m.NavigateErr
	}
	m.Navigated = append(m.Navigated, url)
	return nil
}

func (m *MockSession) Check(_ context.Context, selector string, cond Condition) (bool, error) {
	if m.CheckErr != nil {
		return false, m.CheckErr
	}
	e, ok := m.Elements[selector]
	if !ok {
		return false, nil
	}
	if e.AppearsAfter > 0 && time.Since(m.start) < e.AppearsAfter {
		return false, nil
	}
	switch cond {
	case CondVisible:
		return !e.Hidden, nil
	case CondClickable:
		return !e.Hidden && !e.Disabled, nil
	default:
		return true, nil
	}
}

func (m *MockSession) Click(ctx context.Context, selector string) error {
	present, err := m.Check(ctx, selector, CondPresent)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("no element matches selector %s", selector)
	}
	m.Clicks = append(m.Clicks, selector)
	return nil
}

func (m *MockSession) Type(ctx context.Context, selector, value string) error {
	present, err := m.Check(ctx, selector, CondPresent)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("no element matches selector %s", selector)
	}
	m.Typed[selector] = value
	return nil
}

func (m *MockSession) PageSource(_ context.Context) (string, error) {
	return m.Source, nil
}

func (m *MockSession) Close() error {
	m.CloseCount++
	return nil
}

// Clicked reports whether the given selector was ever clicked.
func (m *MockSession) Clicked(selector string) bool {
	for _, c := range m.Clicks {
		if c == selector {
			return true
		}
	}
	return false
}
