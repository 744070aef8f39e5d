package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// ChromeConfig holds the options for starting a headless Chrome session.
type ChromeConfig struct {
	UserAgent string
}

// ChromeSession drives a headless Chrome instance via chromedp.
type ChromeSession struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
}

// NewChromeSession starts a headless Chrome and returns a session bound to
// its first tab. The returned session must be closed by the caller on
// every exit path so that no browser process outlives the run.
func NewChromeSession(ctx context.Context, cfg *ChromeConfig) (*ChromeSession, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080), // init with a desktop view (sometimes pages look different on mobile, eg buttons are missing)
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	bctx, cancel := chromedp.NewContext(allocCtx)

	// run an empty task list to start the browser so that startup
	// failures surface here and not in the first workflow step
	if err := chromedp.Run(bctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, &SessionError{Op: "start", Err: err}
	}
	slog.Debug("chrome session started")

	return &ChromeSession{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		ctx:         bctx,
		cancel:      cancel,
	}, nil
}

// run executes chromedp actions on the session's tab. The caller context
// only gates whether we start at all; chromedp actions run on the
// session's own context.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(s.ctx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	slog.Debug("navigating", slog.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return &SessionError{Op: "navigate", Err: err}
	}
	return nil
}

func (s *ChromeSession) Check(ctx context.Context, selector string, cond Condition) (bool, error) {
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(conditionProbe(selector, cond), &ok)); err != nil {
		return false, &SessionError{Op: "check", Err: err}
	}
	return ok, nil
}

func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, queryOption(selector), chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches selector %s", selector)
		}
		slog.Debug("clicking on node", slog.String("selector", selector))
		return chromedp.MouseClickNode(nodes[0]).Do(ctx)
	}))
}

func (s *ChromeSession) Type(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.Clear(selector, queryOption(selector)),
		chromedp.SendKeys(selector, value, queryOption(selector)),
	)
}

func (s *ChromeSession) PageSource(ctx context.Context) (string, error) {
	var body string
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", &SessionError{Op: "page-source", Err: err}
	}
	return body, nil
}

// Screenshot captures the current page as png.
func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, &SessionError{Op: "screenshot", Err: err}
	}
	return buf, nil
}

func (s *ChromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.cancelAlloc()
	slog.Debug("chrome session closed")
	return nil
}

func queryOption(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// conditionProbe builds the js expression that checks whether an element
// matching selector satisfies cond right now.
func conditionProbe(selector string, cond Condition) string {
	lookup := fmt.Sprintf("document.querySelector(%s)", jsString(selector))
	if isXPath(selector) {
		lookup = fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			jsString(selector))
	}
	var check string
	switch cond {
	case CondVisible:
		check = "el !== null && el.offsetWidth > 0 && el.offsetHeight > 0"
	case CondClickable:
		check = "el !== null && el.offsetWidth > 0 && el.offsetHeight > 0 && !el.disabled"
	default:
		check = "el !== null"
	}
	return fmt.Sprintf("(() => { const el = %s; return %s; })()", lookup, check)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
