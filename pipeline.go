package docrender

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Response messages.
const (
	msgGenerated        = "document generated successfully"
	msgGenerationFailed = "document generation failed"
	msgInvalidRequest   = "invalid render request"
)

// Pipeline validates a request, renders it with a dedicated browser,
// publishes the PDF and reports metrics. It holds no per-invocation state
// and is safe for concurrent use.
type Pipeline struct {
	engine    Engine
	publisher *Publisher
	resolver  *Resolver
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Default: disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics sets the metrics emitter. Default: none.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithResolver sets the storage key resolver. Default: built-in catalog
// and GCS domain.
func WithResolver(r *Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline wires a pipeline around its collaborators.
func NewPipeline(engine Engine, publisher *Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:    engine,
		publisher: publisher,
		resolver:  NewResolver(nil, ""),
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleRaw decodes an invocation payload and handles it. Payloads that
// cannot be decoded get a 400 response without starting a browser.
func (p *Pipeline) HandleRaw(ctx context.Context, data []byte) Response {
	req, err := DecodeRequest(data)
	if err != nil {
		p.logger.Warn().Err(err).Msg("rejected undecodable render request")
		return errorResponse(http.StatusBadRequest, msgInvalidRequest, err)
	}
	return p.Handle(ctx, req)
}

// Handle runs one invocation: validate, render, publish, report, respond.
// The browser, once acquisition has been attempted, is released exactly
// once before Handle returns.
func (p *Pipeline) Handle(ctx context.Context, req RenderRequest) Response {
	start := p.now()
	log := p.logger.With().
		Str("request_id", p.newID()).
		Str("document_id", req.DocumentID).
		Str("template_id", req.TemplateID).
		Logger()

	if err := req.Validate(); err != nil {
		log.Warn().Err(err).Msg("rejected render request")
		return errorResponse(http.StatusBadRequest, msgInvalidRequest, validationFailure(err))
	}

	out := p.run(ctx, log, req)
	out.Elapsed = p.now().Sub(start)

	p.report(ctx, req.TemplateID, out)

	if out.Err != nil {
		log.Error().Err(out.Err).
			Str("status", string(out.Status)).
			Dur("elapsed", out.Elapsed).
			Msg("render pipeline failed")
		return errorResponse(http.StatusInternalServerError, msgGenerationFailed, out.Err)
	}

	log.Info().
		Str("storage_key", out.Artifact.StorageKey).
		Int("bytes", out.Size).
		Int("pages", out.PageCount).
		Dur("elapsed", out.Elapsed).
		Msg("document published")
	return Response{
		StatusCode: http.StatusOK,
		Headers:    responseHeaders(),
		Body: SuccessBody{
			Message:  msgGenerated,
			PDFURL:   out.Artifact.PublicURL,
			FileName: out.Artifact.StorageKey,
			CVID:     req.DocumentID,
		},
	}
}

// run executes the render and publish stages inside the browser scope.
func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, req RenderRequest) (out RenderOutcome) {
	stage := KindRender
	defer func() {
		if r := recover(); r != nil {
			out = failedOutcome(&Failure{Kind: stage, Err: fmt.Errorf("internal error: %v", r)})
		}
	}()

	log.Debug().Msg("launching browser")
	session, err := p.engine.Acquire(ctx)
	defer p.release(log, session)
	if err != nil {
		return failedOutcome(asFailure(KindRender, err))
	}

	log.Debug().Msg("rendering document")
	payload, err := session.Render(ctx, req.HTMLContent)
	if err != nil {
		return failedOutcome(asFailure(KindRender, err))
	}
	out.Payload = payload
	out.Size = len(payload)
	if n, err := PageCount(payload); err != nil {
		log.Warn().Err(err).Msg("could not inspect rendered PDF")
	} else {
		out.PageCount = n
	}

	stage = KindPublish
	artifact := p.resolver.Resolve(req)
	log.Debug().Str("storage_key", artifact.StorageKey).Msg("publishing document")
	url, err := p.publisher.Publish(ctx, req.StorageBucket, artifact.StorageKey, payload, contentTypePDF)
	if err != nil {
		out.Status = StatusPublishFailure
		out.Err = asFailure(KindPublish, err)
		return out
	}
	artifact.PublicURL = url

	out.Artifact = artifact
	out.Status = StatusSuccess
	return out
}

// release tears the browser down. A teardown error is logged and never
// replaces the invocation's outcome.
func (p *Pipeline) release(log zerolog.Logger, session Session) {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		log.Warn().Err(err).Msg("browser teardown failed")
		return
	}
	log.Debug().Msg("browser closed")
}

// report emits the outcome metrics. It never fails.
func (p *Pipeline) report(ctx context.Context, templateID string, out RenderOutcome) {
	if out.Err != nil {
		p.metrics.RecordError(ctx, templateID, out.Err.Error())
		p.metrics.RecordGeneration(ctx, templateID, http.StatusInternalServerError)
		p.metrics.RecordDuration(ctx, templateID, out.Elapsed)
		return
	}
	p.metrics.RecordGeneration(ctx, templateID, http.StatusOK)
	p.metrics.RecordDuration(ctx, templateID, out.Elapsed)
	p.metrics.RecordSize(ctx, templateID, out.Size)
}

func failedOutcome(err error) RenderOutcome {
	return RenderOutcome{Status: statusFor(KindOf(err)), Err: err}
}

// asFailure keeps an existing stage classification or assigns kind.
func asFailure(kind Kind, err error) error {
	if KindOf(err) != KindInternal {
		return err
	}
	return &Failure{Kind: kind, Err: err}
}

func errorResponse(status int, label string, err error) Response {
	return Response{
		StatusCode: status,
		Headers:    responseHeaders(),
		Body: ErrorBody{
			Error:   label,
			Message: err.Error(),
			Kind:    KindOf(err),
		},
	}
}
