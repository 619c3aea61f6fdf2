// Package capture screenshots the dashboard page with headless Chromium,
// producing the PNG preview served at /preview.png.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"studiodash/internal/config"
	appLog "studiodash/internal/log"
)

const (
	DefaultWidth   = 984
	DefaultHeight  = 1304
	DefaultTimeout = 30 * time.Second

	// ReadySelector is present once the page has rendered its data.
	ReadySelector = `[data-ready="true"]`
)

// Options defines one capture.
type Options struct {
	// URL of the dashboard page, e.g. "http://127.0.0.1:5001/?week=0".
	URL        string
	OutputPath string
	Width      int
	Height     int
	Timeout    time.Duration
}

// OptionsFromConfig builds capture options for the page served on cfg.Listen.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:        PageURL(cfg.Listen),
		OutputPath: cfg.Capture.OutputPath,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
	}
}

// PageURL turns a listen address into the URL of the dashboard page.
// Wildcard hosts are replaced by loopback.
func PageURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + strings.TrimSuffix(listen, "/") + "/"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// PagePNG navigates to opts.URL, waits for ReadySelector and writes a full
// page PNG to opts.OutputPath. The file is replaced atomically so the web
// surface never serves a half-written image.
func PagePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// let the last paint land
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return err
	}

	appLog.Info("capture done", "url", opts.URL, "path", opts.OutputPath, "bytes", len(png), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return fmt.Errorf("capture: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: close PNG: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("capture: chmod PNG: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("capture: rename PNG: %w", err)
	}
	return nil
}
