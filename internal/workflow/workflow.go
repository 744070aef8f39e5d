// Package workflow implements the reservation state machine: login,
// existing-reservation probe, navigation, slot selection, submission and
// confirmation. Steps run strictly sequentially; a step either continues
// the run or terminates it with a final status. Nothing is retried within
// a run, the external daily schedule is the retry boundary.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jakopako/gymbot/internal/browser"
	"github.com/jakopako/gymbot/internal/config"
	"github.com/jakopako/gymbot/internal/log"
	"github.com/jakopako/gymbot/internal/types"
)

// Step names as they appear in the run summary. Failure reasons are
// separate, eg both navigation steps fail with reason "navigation".
const (
	StepStart         = "start"
	StepLogin         = "login"
	StepCheckExisting = "check-existing"
	StepNavigate      = "navigate"
	StepSelectSlot    = "select-slot"
	StepSubmit        = "submit"
	StepConfirm       = "confirm"
)

// successKeywords is the fallback signal when no success selector is
// configured: the page source is scanned for any of these words.
var successKeywords = []string{"success", "confirmed", "reserved", "booked"}

// SessionProvider supplies a started browser session. The workflow owns
// the returned session for the duration of one run and releases it on
// every exit path.
type SessionProvider func(ctx context.Context) (browser.Session, error)

// Workflow executes one reservation run.
type Workflow struct {
	settings *config.Settings
	provider SessionProvider
	locator  *browser.Locator
}

func New(settings *config.Settings, provider SessionProvider) *Workflow {
	return &Workflow{
		settings: settings,
		provider: provider,
		locator:  browser.NewLocator(settings.Timeouts.PollInterval),
	}
}

type step struct {
	name string
	fn   func(ctx context.Context, s browser.Session) types.StepOutcome
}

// Run executes the full workflow and always returns a RunResult; errors
// never escape as such, every failure path maps to exactly one
// Failed(reason) result.
func (w *Workflow) Run(ctx context.Context) *types.RunResult {
	logger := log.LoggerFromContext(ctx)
	result := &types.RunResult{StartedAt: time.Now()}

	sess, err := w.provider(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to start browser session: %v", err))
		w.finish(result, types.Failed("session"), "session")
		return result
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn(fmt.Sprintf("failed to close browser session: %v", err))
		}
	}()

	steps := []step{
		{StepStart, w.start},
		{StepLogin, w.logIn},
		{StepCheckExisting, w.checkExisting},
		{StepNavigate, w.navigateToBooking},
		{StepSelectSlot, w.selectSlot},
		{StepSubmit, w.submit},
		{StepConfirm, w.confirm},
	}

	for _, st := range steps {
		stepStart := time.Now()
		outcome := st.fn(ctx, sess)
		result.Steps = append(result.Steps, types.StepStat{
			Name:     st.name,
			Outcome:  outcomeLabel(outcome),
			Duration: time.Since(stepStart),
		})
		if outcome.Kind == types.OutcomeContinue {
			continue
		}
		if outcome.Kind == types.OutcomeFailed && config.Debug {
			w.saveDebugScreenshot(ctx, sess, st.name)
		}
		w.finish(result, outcome, st.name)
		return result
	}
	// the confirm step always terminates; reaching this point means a
	// step misbehaved
	w.finish(result, types.Failed("internal"), "internal")
	return result
}

func (w *Workflow) finish(result *types.RunResult, outcome types.StepOutcome, stepName string) {
	result.FinishedAt = time.Now()
	switch outcome.Kind {
	case types.OutcomeSucceeded:
		result.Status = types.StatusReserved
	case types.OutcomeAlreadyReserved:
		result.Status = types.StatusAlreadyReserved
	default:
		result.Status = types.StatusFailed
		result.Reason = outcome.Reason
		result.FailedStep = stepName
	}
}

// start navigates to the configured reservation url.
func (w *Workflow) start(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	logger.Info("navigating to reservation url", slog.String("url", w.settings.ReservationURL))
	if err := s.Navigate(ctx, w.settings.ReservationURL); err != nil {
		logger.Error(fmt.Sprintf("failed to load reservation url: %v", err))
		return types.Failed("navigation")
	}
	return types.Continue()
}

// logIn fills in the credentials, clicks the login button and, if a post
// login marker is configured, waits for it. The marker is the primary
// authentication failure signal since the portal has no explicit error
// contract.
func (w *Workflow) logIn(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	sel := w.settings.Selectors
	timeout := w.settings.Timeouts.Login

	logger.Info("waiting for login form")
	if err := w.locator.WaitFor(ctx, s, sel.Username, browser.CondPresent, timeout); err != nil {
		logger.Error(fmt.Sprintf("username field not found: %v", err))
		return types.Failed("login")
	}
	if err := w.locator.WaitFor(ctx, s, sel.Password, browser.CondPresent, timeout); err != nil {
		logger.Error(fmt.Sprintf("password field not found: %v", err))
		return types.Failed("login")
	}

	logger.Info("filling in login credentials")
	if err := s.Type(ctx, sel.Username, w.settings.Username); err != nil {
		logger.Error(fmt.Sprintf("failed to enter username: %v", err))
		return types.Failed("login")
	}
	if err := s.Type(ctx, sel.Password, w.settings.Password); err != nil {
		logger.Error(fmt.Sprintf("failed to enter password: %v", err))
		return types.Failed("login")
	}

	if err := w.locator.WaitFor(ctx, s, sel.LoginButton, browser.CondClickable, timeout); err != nil {
		logger.Error(fmt.Sprintf("login button not found: %v", err))
		return types.Failed("login")
	}
	if err := s.Click(ctx, sel.LoginButton); err != nil {
		logger.Error(fmt.Sprintf("failed to click login button: %v", err))
		return types.Failed("login")
	}

	if sel.PostLogin != "" {
		if err := w.locator.WaitFor(ctx, s, sel.PostLogin, browser.CondPresent, timeout); err != nil {
			logger.Error(fmt.Sprintf("post login marker never appeared: %v", err))
			return types.Failed("login")
		}
	} else {
		// no marker configured, give the page a moment to settle
		if err := settle(ctx, w.settings.Timeouts.Settle); err != nil {
			return types.Failed("login")
		}
	}
	logger.Info("login successful")
	return types.Continue()
}

// checkExisting probes for an existing reservation before anything is
// mutated. Re-running the bot on a day that is already booked must be a
// no-op, not a duplicate booking. Expiry of the short probe window means
// "no reservation", not an error.
func (w *Workflow) checkExisting(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	sel := w.settings.Selectors.ExistingReservation
	if sel == "" {
		logger.Info("no existing reservation check configured, proceeding with reservation")
		return types.Continue()
	}

	err := w.locator.WaitFor(ctx, s, sel, browser.CondPresent, w.settings.Timeouts.Probe)
	if err == nil {
		logger.Info("existing reservation detected, nothing to do")
		return types.AlreadyReserved()
	}
	var enf *browser.ElementNotFoundError
	if errors.As(err, &enf) {
		logger.Info("no existing reservation found, proceeding with reservation")
		return types.Continue()
	}
	logger.Error(fmt.Sprintf("existing reservation check failed: %v", err))
	return types.Failed("session")
}

// navigateToBooking clicks through to the booking page if a selector for
// that link is configured; otherwise the current page is assumed to serve
// that purpose.
func (w *Workflow) navigateToBooking(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	sel := w.settings.Selectors.ReservationPage
	if sel == "" {
		return types.Continue()
	}

	logger.Info("navigating to booking page")
	if err := w.locator.WaitFor(ctx, s, sel, browser.CondClickable, w.settings.Timeouts.Booking); err != nil {
		logger.Error(fmt.Sprintf("booking page link not found: %v", err))
		return types.Failed("navigation")
	}
	if err := s.Click(ctx, sel); err != nil {
		logger.Error(fmt.Sprintf("failed to click booking page link: %v", err))
		return types.Failed("navigation")
	}
	if err := settle(ctx, w.settings.Timeouts.Settle); err != nil {
		return types.Failed("navigation")
	}
	return types.Continue()
}

// selectSlot picks today's date, if a date selector is configured, and
// clicks the configured time slot.
func (w *Workflow) selectSlot(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	sel := w.settings.Selectors
	timeout := w.settings.Timeouts.Booking

	if sel.Date != "" {
		logger.Info("selecting date")
		if err := w.locator.WaitFor(ctx, s, sel.Date, browser.CondClickable, timeout); err != nil {
			logger.Error(fmt.Sprintf("date element not found: %v", err))
			return types.Failed("slot-selection")
		}
		if err := s.Click(ctx, sel.Date); err != nil {
			logger.Error(fmt.Sprintf("failed to click date element: %v", err))
			return types.Failed("slot-selection")
		}
	}

	logger.Info("selecting time slot", slog.String("selector", sel.TimeSlot))
	if err := w.locator.WaitFor(ctx, s, sel.TimeSlot, browser.CondClickable, timeout); err != nil {
		logger.Error(fmt.Sprintf("time slot not found: %v", err))
		return types.Failed("slot-selection")
	}
	if err := s.Click(ctx, sel.TimeSlot); err != nil {
		logger.Error(fmt.Sprintf("failed to click time slot: %v", err))
		return types.Failed("slot-selection")
	}
	return types.Continue()
}

// submit clicks the submit/confirm element.
func (w *Workflow) submit(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	sel := w.settings.Selectors.Submit

	logger.Info("submitting reservation")
	if err := w.locator.WaitFor(ctx, s, sel, browser.CondClickable, w.settings.Timeouts.Booking); err != nil {
		logger.Error(fmt.Sprintf("submit button not found: %v", err))
		return types.Failed("submit")
	}
	if err := s.Click(ctx, sel); err != nil {
		logger.Error(fmt.Sprintf("failed to click submit button: %v", err))
		return types.Failed("submit")
	}
	return types.Continue()
}

// confirm waits for the success marker. Without a positive confirmation
// the run is reported as failed even though the booking may have gone
// through server-side; assuming success here would mask real failures.
func (w *Workflow) confirm(ctx context.Context, s browser.Session) types.StepOutcome {
	logger := log.LoggerFromContext(ctx)
	sel := w.settings.Selectors.Success

	if sel != "" {
		if err := w.locator.WaitFor(ctx, s, sel, browser.CondPresent, w.settings.Timeouts.Confirm); err != nil {
			logger.Error(fmt.Sprintf("success marker never appeared: %v", err))
			return types.Failed("confirmation")
		}
		logger.Info("reservation confirmed")
		return types.Succeeded()
	}

	// no success selector configured, fall back to scanning the page
	// text for success keywords
	if err := settle(ctx, w.settings.Timeouts.Settle); err != nil {
		return types.Failed("confirmation")
	}
	src, err := s.PageSource(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to read page source: %v", err))
		return types.Failed("confirmation")
	}
	ok, err := pageContainsAny(src, successKeywords)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to parse page source: %v", err))
		return types.Failed("confirmation")
	}
	if !ok {
		logger.Error("could not confirm reservation success")
		return types.Failed("confirmation")
	}
	logger.Info("reservation appears to be successful, found success keyword in page")
	return types.Succeeded()
}

// pageContainsAny reports whether the visible text of the given html
// contains any of the keywords, case-insensitively.
func pageContainsAny(html string, keywords []string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, err
	}
	text := strings.ToLower(doc.Text())
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true, nil
		}
	}
	return false, nil
}

func (w *Workflow) saveDebugScreenshot(ctx context.Context, s browser.Session, stepName string) {
	logger := log.LoggerFromContext(ctx)
	shooter, ok := s.(browser.Screenshotter)
	if !ok {
		return
	}
	buf, err := shooter.Screenshot(ctx)
	if err != nil {
		logger.Warn(fmt.Sprintf("failed to capture debug screenshot: %v", err))
		return
	}
	if err := os.MkdirAll(w.settings.DebugDir, os.ModePerm); err != nil {
		logger.Warn(fmt.Sprintf("failed to create debug directory: %v", err))
		return
	}
	filename := path.Join(w.settings.DebugDir, fmt.Sprintf("%s-%s.png", stepName, time.Now().Format("20060102-150405")))
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		logger.Warn(fmt.Sprintf("failed to write debug screenshot: %v", err))
		return
	}
	logger.Debug(fmt.Sprintf("wrote debug screenshot to %s", filename))
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func outcomeLabel(o types.StepOutcome) string {
	switch o.Kind {
	case types.OutcomeContinue:
		return "ok"
	case types.OutcomeAlreadyReserved:
		return "already-reserved"
	case types.OutcomeSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}
