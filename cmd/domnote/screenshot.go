package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domnote/annotation"
)

// capturer implements the server's screenshot callback against a running
// Chrome instance. It opens a throwaway tab on the annotated URL, shoots
// it, and returns a PNG data URI. Failures degrade to "no screenshot" on
// the server side, so everything here can simply return errors.
type capturer struct {
	browser *rod.Browser
	logger  *slog.Logger
	timeout time.Duration
}

// newCapturer connects to Chrome at controlURL (a DevTools host:port or
// websocket URL, e.g. from chrome --remote-debugging-port).
func newCapturer(controlURL string, logger *slog.Logger) (*capturer, error) {
	wsURL, err := launcher.ResolveURL(controlURL)
	if err != nil {
		return nil, fmt.Errorf("screenshot: resolve %s: %w", controlURL, err)
	}
	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("screenshot: connect: %w", err)
	}
	return &capturer{browser: b, logger: logger, timeout: 15 * time.Second}, nil
}

// Capture satisfies server.ScreenshotFunc.
func (c *capturer) Capture(ctx context.Context, a *annotation.Annotation) (string, error) {
	if a.URL == "" {
		return "", fmt.Errorf("screenshot: annotation has no url")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := c.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return "", fmt.Errorf("screenshot: create tab: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(a.URL); err != nil {
		return "", fmt.Errorf("screenshot: navigate %s: %w", a.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("screenshot: wait load: %w", err)
	}

	bin, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("screenshot: capture: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(bin), nil
}

// Close disconnects from Chrome. The browser process itself is not ours to
// kill.
func (c *capturer) Close() {
	if err := c.browser.Close(); err != nil {
		c.logger.Debug("screenshot: close", "error", err)
	}
}
