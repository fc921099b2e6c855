// Package docrender renders HTML documents to PDF with headless Chrome and
// publishes them to object storage under a deterministic key.
//
// # Quick Start
//
// Wire an engine and a publisher into a Pipeline, then handle requests:
//
//	store, err := docrender.NewGCSStore(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	resolver := docrender.NewResolver(nil, "")
//	p := docrender.NewPipeline(
//	    docrender.NewRodEngine(docrender.EngineConfig{}),
//	    docrender.NewPublisher(store, resolver),
//	    docrender.WithResolver(resolver),
//	)
//
//	resp := p.Handle(ctx, docrender.RenderRequest{
//	    DocumentID:    "d1",
//	    HTMLContent:   "<h1>Hello</h1>",
//	    StorageBucket: "artifacts",
//	    OwnerName:     "Ann Lee",
//	    DocumentTitle: "Resume",
//	    TemplateID:    "executive",
//	})
//
// Handle never returns an error. Resp.StatusCode is 200, 400 or 500 and
// resp.Body is a SuccessBody or an ErrorBody.
//
// # Invocation Lifecycle
//
// Each invocation runs these stages:
//
//  1. Validation. A request without HTML or bucket gets 400 before any
//     browser starts and without recording metrics.
//  2. Rendering. A fresh browser is launched, the HTML is loaded, and the
//     page is printed to an A4 PDF with backgrounds.
//  3. Publishing. The PDF is stored at
//     Documents/{owner}/{documentId}/Document-{title}-{label}.pdf
//     and its virtual-hosted URL is returned.
//  4. Reporting. Outcome metrics are emitted best-effort.
//
// Once acquisition was attempted, the browser is released exactly once,
// whatever the outcome.
//
// # Concurrency
//
// Browsers are never shared between invocations. Wrap an engine with
// NewLimitedEngine to bound how many run at once:
//
//	engine := docrender.NewLimitedEngine(
//	    docrender.NewRodEngine(docrender.EngineConfig{}),
//	    docrender.ResolveConcurrency(0),
//	)
//
// # Metrics
//
// Pass WithMetrics to record DocumentGeneration, ExecutionTime,
// DocumentSize and GenerationErrors. PushgatewaySink pushes them to a
// Prometheus Pushgateway; LogSink writes them to a zerolog logger.
// Metric failures are logged and never change the response.
//
// # Browser Requirements
//
// PDF generation requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set EngineConfig.NoSandbox. Use
// EngineConfig.BrowserBin or ROD_BROWSER_BIN to specify a custom binary.
package docrender
