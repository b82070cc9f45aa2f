package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer loads pages in a headless browser so script-rendered listings and
// detail pages can be read. One Renderer (and its allocator) is shared by all
// adapters for the whole run.
type Renderer struct {
	allocCtx  context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	userAgent string
}

func NewRenderer(timeout time.Duration, userAgent string) *Renderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", ""),
		chromedp.Flag("disable-dev-shm-usage", ""),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Renderer{
		allocCtx:  allocCtx,
		cancel:    cancel,
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Render navigates to url and returns the rendered markup. When waitFor is
// set, the page is given one timeout window for that selector to appear; a
// wait timeout is not an error, the markup present at that point is used.
func (r *Renderer) Render(ctx context.Context, url, waitFor string) (string, error) {
	taskCtx, cancelTask := chromedp.NewContext(r.allocCtx)
	defer cancelTask()

	if err := r.run(taskCtx, chromedp.Navigate(url)); err != nil {
		return "", err
	}
	if waitFor != "" {
		// Best effort: some configured selectors never materialize on
		// empty result pages.
		_ = r.run(taskCtx, chromedp.WaitVisible(waitFor, chromedp.ByQuery))
	}

	var htmlContent string
	err := r.run(taskCtx,
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", err
	}
	return htmlContent, nil
}

// run executes actions with a fresh timeout window so an ignored wait
// timeout does not starve the final page read.
func (r *Renderer) run(taskCtx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(taskCtx, r.timeout)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

// Close releases the browser allocator.
func (r *Renderer) Close() {
	r.cancel()
}
