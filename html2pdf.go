package docrender

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/docrender/go-docrender/internal/process"
)

// Engine acquires render sessions. Each session owns one browser process.
type Engine interface {
	// Acquire starts a browser. It returns a non-nil Session even when it
	// fails, so the caller can release whatever was started part-way.
	Acquire(ctx context.Context) (Session, error)
}

// Session renders HTML with a browser owned by a single invocation.
type Session interface {
	Render(ctx context.Context, htmlContent string) ([]byte, error)
	// Close terminates the browser. Only the first call has any effect.
	Close() error
}

// Compile-time interface checks
var (
	_ Engine  = (*RodEngine)(nil)
	_ Session = (*rodSession)(nil)
)

// streamingResourceTypes are long-lived connections that never go idle.
// Images, fonts and media are waited for.
var streamingResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// PDF page dimensions in inches (A4, full bleed).
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0
)

// Load defaults.
const (
	DefaultLoadTimeout = 30 * time.Second
	DefaultIdleWindow  = 500 * time.Millisecond
)

// EngineConfig configures browser launch and page loading.
type EngineConfig struct {
	BrowserBin  string        // empty = ROD_BROWSER_BIN or rod's managed download
	NoSandbox   bool          // required in most containers
	LoadTimeout time.Duration // upper bound on content load, further capped by ctx deadline
	IdleWindow  time.Duration // quiet network period that marks the page as loaded
}

// RodEngine launches headless Chromium through go-rod, one process per session.
type RodEngine struct {
	cfg EngineConfig
}

// NewRodEngine creates a RodEngine, filling zero durations with defaults.
func NewRodEngine(cfg EngineConfig) *RodEngine {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = DefaultIdleWindow
	}
	if cfg.BrowserBin == "" {
		cfg.BrowserBin = os.Getenv("ROD_BROWSER_BIN")
	}
	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || cfg.BrowserBin != "" {
		cfg.NoSandbox = true
	}
	return &RodEngine{cfg: cfg}
}

// Acquire launches a browser and connects to it.
// The launcher is tied to ctx: if ctx ends, the browser process is killed.
func (e *RodEngine) Acquire(ctx context.Context) (Session, error) {
	s := &rodSession{cfg: e.cfg}

	if err := ctx.Err(); err != nil {
		return s, renderFailure(fmt.Errorf("%w: %v", ErrBrowserConnect, err))
	}

	l := launcher.New().Context(ctx).Headless(true)
	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}
	if e.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	s.launcher = l

	u, err := l.Launch()
	if err != nil {
		return s, renderFailure(fmt.Errorf("%w: %v", ErrBrowserConnect, err))
	}
	s.launched = true

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return s, renderFailure(fmt.Errorf("%w: %v", ErrBrowserConnect, err))
	}
	s.browser = browser
	return s, nil
}

// rodSession is one launched browser.
type rodSession struct {
	cfg      EngineConfig
	launcher *launcher.Launcher
	launched bool
	browser  *rod.Browser

	closeOnce sync.Once
	closeErr  error
}

// Render loads htmlContent into a fresh page, waits for the network to go
// idle and prints the page to PDF.
func (s *rodSession) Render(ctx context.Context, htmlContent string) ([]byte, error) {
	if s.browser == nil {
		return nil, renderFailure(fmt.Errorf("%w: browser not started", ErrBrowserConnect))
	}

	timeout, err := loadTimeout(ctx, s.cfg.LoadTimeout)
	if err != nil {
		return nil, renderFailure(fmt.Errorf("%w: %v", ErrPageLoad, err))
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, renderFailure(fmt.Errorf("%w: %v", ErrPageCreate, err))
	}
	defer page.Close()

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	loading := page.Context(loadCtx)

	// Arm the idle waiter before loading so early requests are tracked.
	waitIdle := loading.WaitRequestIdle(s.cfg.IdleWindow, nil, nil, streamingResourceTypes)
	if err := loading.SetDocumentContent(htmlContent); err != nil {
		return nil, renderFailure(fmt.Errorf("%w: %v", ErrPageLoad, err))
	}
	waitIdle()
	if err := loadCtx.Err(); err != nil {
		return nil, renderFailure(fmt.Errorf("%w: network not idle after %s: %v", ErrPageLoad, timeout, err))
	}

	reader, err := page.Context(ctx).PDF(buildPDFOptions())
	if err != nil {
		return nil, renderFailure(fmt.Errorf("%w: %v", ErrPDFGeneration, err))
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, renderFailure(fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err))
	}
	return pdfBuf, nil
}

// Close shuts the browser down. The process tree is only killed when the
// browser never connected or refused to close.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launcher == nil {
			return
		}
		if s.browser == nil || s.closeErr != nil {
			if pid := s.launcher.PID(); pid > 0 {
				process.KillProcessGroup(pid)
				s.launcher.Kill()
			}
		}
		// Cleanup blocks until the process exits, which never happens
		// for a launch that failed before starting it.
		if s.launched {
			s.launcher.Cleanup()
		}
	})
	return s.closeErr
}

// loadTimeout bounds page loading by both the configured limit and the
// context deadline.
func loadTimeout(ctx context.Context, limit time.Duration) (time.Duration, error) {
	timeout := limit
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return timeout, nil
}

// buildPDFOptions returns A4, zero-margin, background-printing options.
func buildPDFOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
