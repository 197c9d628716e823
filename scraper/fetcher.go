package scraper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"sheriff-scraper/config"
	"sheriff-scraper/models"
	"sheriff-scraper/utils"
)

// Fetcher renders a source's listing page in a headless browser and returns
// the final HTML. The browser is acquired per call and released on every
// exit path; there is no retry — a failed fetch fails that source's run.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewFetcher creates a ready-to-use Fetcher.
func NewFetcher(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch navigates to the source's listing page, waits a fixed settle interval
// for client-side rendering, and returns the rendered document. Errors are
// returned as *models.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, layout config.SourceLayout) (string, error) {
	chromeBin := findChromeBinary(f.cfg.ChromeBin)
	f.logger.Debug("[fetch] %s — browser binary: %s", layout.ID, chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	// Both cancels run unconditionally, so the browser process dies on
	// success, render failure, and timeout alike.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancelTimeout := context.WithTimeout(browserCtx,
		time.Duration(f.cfg.FetchTimeoutSec)*time.Second)
	defer cancelTimeout()

	f.logger.Info("[fetch] %s — navigating to %s", layout.ID, layout.URL)

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(layout.URL),
		chromedp.Sleep(time.Duration(f.cfg.SettleDelayMs)*time.Millisecond),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		kind := models.FetchRenderFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = models.FetchTimeout
		}
		return "", &models.FetchError{Source: layout.ID, Kind: kind, Err: err}
	}

	if blocked(html) {
		return "", &models.FetchError{
			Source: layout.ID,
			Kind:   models.FetchBlocked,
			Err:    errors.New("page served an access-denied interstitial"),
		}
	}

	f.logger.Info("[fetch] %s — rendered %d bytes", layout.ID, len(html))
	return html, nil
}

// blocked recognises the common bot-wall interstitials these county portals
// serve instead of the sales table.
func blocked(html string) bool {
	lowered := strings.ToLower(html)
	for _, marker := range []string{
		"access denied",
		"request unsuccessful. incapsula",
		"attention required! | cloudflare",
	} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
