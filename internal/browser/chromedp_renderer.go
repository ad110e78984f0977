package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pagepulse/pagepulse/internal/logging"
)

// ChromeRenderer implements Renderer with chromedp. Each call gets its own
// browser context so a wedged page cannot poison later renders.
type ChromeRenderer struct {
	idleAfter time.Duration
	logger    logging.Logger
}

func NewChromeRenderer(logger logging.Logger) *ChromeRenderer {
	return &ChromeRenderer{
		idleAfter: 2 * time.Second,
		logger:    logger.With(logging.Field{Key: "component", Value: "browser"}),
	}
}

func (r *ChromeRenderer) MeasureScrollWidth(ctx context.Context, url string, vp Viewport) (int, error) {
	var width int
	err := r.render(ctx, url, vp, chromedp.Evaluate("document.documentElement.scrollWidth", &width))
	if err != nil {
		return 0, err
	}
	return width, nil
}

func (r *ChromeRenderer) CaptureFullPage(ctx context.Context, url string, vp Viewport) ([]byte, error) {
	var buf []byte
	// Quality below 100 makes chromedp emit JPEG; 100 selects PNG, which is
	// what the stored .png file must contain.
	err := r.render(ctx, url, vp, chromedp.FullScreenshot(&buf, 100))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *ChromeRenderer) Close() error {
	return nil
}

// render navigates to the URL, waits for the network to go idle, then runs
// the extraction action.
func (r *ChromeRenderer) render(ctx context.Context, url string, vp Viewport, extract chromedp.Action) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(vp.Width, vp.Height),
	)
	if vp.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(vp.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	idle := waitNetworkIdle(browserCtx, r.idleAfter)

	start := time.Now()
	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(url),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	select {
	case <-idle:
	case <-browserCtx.Done():
		return fmt.Errorf("render %s: %w", url, browserCtx.Err())
	}

	if err := chromedp.Run(browserCtx, extract); err != nil {
		return fmt.Errorf("render %s: %w", url, err)
	}

	r.logger.Debug("rendered page",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "viewport", Value: fmt.Sprintf("%dx%d", vp.Width, vp.Height)},
		logging.Field{Key: "took", Value: time.Since(start).String()})

	return nil
}

// waitNetworkIdle closes the returned channel once no request has been in
// flight for idleAfter. The timer is armed immediately so pages that issue
// no subresource requests still go idle.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timerMutex sync.Mutex
	var timer *time.Timer
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	startTimer()
	return idleChan
}
