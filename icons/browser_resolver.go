package icons

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// probeImageJS resolves to true once the browser has loaded and decoded the image
const probeImageJS = `(url) => new Promise((resolve) => {
	const img = new Image();
	img.onload = () => resolve(true);
	img.onerror = () => resolve(false);
	img.src = url;
})`

// BrowserResolver probes icons the way a page would, by loading them
// into an Image inside a headless browser
type BrowserResolver struct {
	browser *rod.Browser
	page    *rod.Page
}

var browserPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
}

// systemBrowser returns the first installed Chrome or Chromium binary, or ""
func systemBrowser() string {
	for _, path := range browserPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// NewBrowserResolver launches a headless browser for icon probes
func NewBrowserResolver() (*BrowserResolver, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("mute-audio")

	// Prefer a system browser over downloading one
	if bin := systemBrowser(); bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open probe page: %w", err)
	}

	log.Info().Str("control_url", controlURL).Msg("Browser icon resolver ready")
	return &BrowserResolver{browser: browser, page: page}, nil
}

// Resolve loads url as an image in the probe page
func (b *BrowserResolver) Resolve(ctx context.Context, url string) error {
	res, err := b.page.Context(ctx).Eval(probeImageJS, url)
	if err != nil {
		return fmt.Errorf("failed to evaluate image probe: %w", err)
	}
	if !res.Value.Bool() {
		return ErrNotLoaded
	}
	return nil
}

// Close shuts the browser down
func (b *BrowserResolver) Close() error {
	if b.page != nil {
		if err := b.page.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close probe page")
		}
	}
	if b.browser != nil {
		return b.browser.Close()
	}
	return nil
}
