// Package playwright drives a headless Chromium through playwright-go for
// sources that render their pages client-side.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"time"

	pw "github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Options configures one browser launch.
type Options struct {
	// StorageStatePath is a storage-state JSON with the authenticated cookies.
	StorageStatePath string
	UserAgent        string
	Headless         bool
	Logger           *zap.Logger
}

// Browser owns a playwright driver, a Chromium instance and a single page.
// It is not safe for concurrent use.
type Browser struct {
	pw      *pw.Playwright
	browser pw.Browser
	page    pw.Page
	logger  *zap.Logger
}

// Launch starts the driver and opens one page in a fresh context seeded with the storage state.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := driver.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
	})
	if err != nil {
		_ = driver.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	ctxOpts := pw.BrowserNewContextOptions{}
	if opts.StorageStatePath != "" {
		ctxOpts.StorageStatePath = pw.String(opts.StorageStatePath)
	}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = pw.String(opts.UserAgent)
	}
	bctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		_ = browser.Close()
		_ = driver.Stop()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = driver.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	logger.Info("Browser launched", zap.Bool("headless", opts.Headless))
	return &Browser{pw: driver, browser: browser, page: page, logger: logger}, nil
}

// Goto navigates the page. idle waits for network idle instead of DOMContentLoaded.
func (b *Browser) Goto(ctx context.Context, url string, idle bool, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wait := pw.WaitUntilStateDomcontentloaded
	if idle {
		wait = pw.WaitUntilStateNetworkidle
	}
	if _, err := b.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: wait,
		Timeout:   pw.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// WaitFor blocks until selector is attached to the main document or timeout passes.
func (b *Browser) WaitFor(selector string, timeout time.Duration) error {
	err := b.page.Locator(selector).First().WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateAttached,
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// HTML returns the serialized main document.
func (b *Browser) HTML() (string, error) {
	html, err := b.page.Content()
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

// FrameHTML returns the serialized documents of every sub-frame in order.
// Frames that fail to serialize (detached, cross-origin errors) are skipped.
func (b *Browser) FrameHTML() []string {
	frames := b.page.Frames()
	if len(frames) <= 1 {
		return nil
	}
	out := make([]string, 0, len(frames)-1)
	for _, f := range frames[1:] {
		html, err := f.Content()
		if err != nil {
			b.logger.Debug("Frame content unavailable", zap.String("url", f.URL()), zap.Error(err))
			continue
		}
		out = append(out, html)
	}
	return out
}

const fetchDataURLScript = `async (url) => {
	const res = await fetch(url, { credentials: 'include' });
	if (!res.ok) { throw new Error('HTTP ' + res.status); }
	const blob = await res.blob();
	return await new Promise((resolve, reject) => {
		const reader = new FileReader();
		reader.onloadend = () => resolve(reader.result);
		reader.onerror = () => reject(reader.error);
		reader.readAsDataURL(blob);
	});
}`

// FetchDataURL fetches url from inside the page with its cookies and returns a data URI.
func (b *Browser) FetchDataURL(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := b.page.Evaluate(fetchDataURLScript, url)
	if err != nil {
		return "", fmt.Errorf("in-page fetch %s: %w", url, err)
	}
	s, ok := res.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("in-page fetch %s: unexpected result %T", url, res)
	}
	return s, nil
}

// Close releases the page, the browser and the driver. Safe to call once per Launch.
func (b *Browser) Close() error {
	var errs []error
	if b.page != nil {
		if err := b.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	b.logger.Debug("Browser closed")
	return errors.Join(errs...)
}
