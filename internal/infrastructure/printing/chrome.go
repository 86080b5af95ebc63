package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrRendererUnavailable means no browser could be started to print a PDF
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// ErrRenderTimeout is returned when printing outlives its deadline
var ErrRenderTimeout = errors.New("pdf rendering timed out")

const (
	defaultPrintTimeout = 30 * time.Second
	mmPerInch           = 25.4
	// tall enough that a receipt never breaks across pages
	continuousPageMM = 3000
)

// Page is the printed sheet in millimeters. Zero height prints one
// continuous page.
type Page struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

// Printer turns a complete HTML document into PDF bytes
type Printer interface {
	Print(ctx context.Context, document []byte, p Page) ([]byte, error)
	Close() error
}

// ChromeConfig selects the browser. RemoteURL wins over a local binary.
type ChromeConfig struct {
	Timeout   time.Duration
	ExecPath  string // empty searches PATH
	RemoteURL string // devtools websocket of a running Chrome
	NoSandbox bool   // needed when running as root in a container
}

// Chrome prints through headless Chrome over the DevTools protocol. Every
// Print opens a fresh tab on a shared browser allocator.
type Chrome struct {
	alloc   context.Context
	release context.CancelFunc
	timeout time.Duration
	log     *zap.Logger
}

var _ Printer = (*Chrome)(nil)

// browsers are tried on PATH in order when no binary is configured
var browsers = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// NewChrome prepares the allocator. Chrome itself starts on the first Print.
// A missing binary yields ErrRendererUnavailable.
func NewChrome(cfg ChromeConfig, log *zap.Logger) (*Chrome, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Chrome{timeout: cfg.Timeout, log: log}
	if c.timeout <= 0 {
		c.timeout = defaultPrintTimeout
	}

	if cfg.RemoteURL != "" {
		c.alloc, c.release = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return c, nil
	}

	bin, err := findBrowser(cfg.ExecPath)
	if err != nil {
		return nil, err
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(bin),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	c.alloc, c.release = chromedp.NewExecAllocator(context.Background(), opts...)
	log.Info("Chrome printer ready", zap.String("exec_path", bin))
	return c, nil
}

func findBrowser(configured string) (string, error) {
	names := browsers
	if configured != "" {
		names = []string{configured}
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no chrome binary among %s", ErrRendererUnavailable, strings.Join(names, ", "))
}

// Print loads document into a blank tab and prints it with backgrounds
func (c *Chrome) Print(ctx context.Context, document []byte, p Page) ([]byte, error) {
	if len(bytes.TrimSpace(document)) == 0 {
		return nil, errors.New("printing: empty document")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tab, closeTab := chromedp.NewContext(c.alloc, chromedp.WithLogf(c.log.Sugar().Debugf))
	defer closeTab()
	// the tab does not derive from ctx, so tie it to the deadline by hand
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(document)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) (err error) {
			pdf, _, err = printParams(p).Do(ctx)
			return err
		}),
	)
	switch {
	case err == nil && len(pdf) == 0:
		return nil, errors.New("printing: chrome returned an empty pdf")
	case err == nil:
		return pdf, nil
	case isLaunchFailure(err):
		c.log.Error("Chrome could not be started", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w after %s: %v", ErrRenderTimeout, c.timeout, err)
	default:
		return nil, fmt.Errorf("printing: %w", err)
	}
}

// printParams converts p to the inch based DevTools parameters
func printParams(p Page) *page.PrintToPDFParams {
	height := p.HeightMM
	if height <= 0 {
		height = continuousPageMM
	}
	margin := p.MarginMM / mmPerInch
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(p.WidthMM / mmPerInch).
		WithPaperHeight(height / mmPerInch).
		WithMarginTop(margin).
		WithMarginRight(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin)
}

func isLaunchFailure(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, exec.ErrNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "chrome failed to start") ||
		strings.Contains(msg, "websocket url timeout reached")
}

// Close stops the browser
func (c *Chrome) Close() error {
	c.release()
	return nil
}
