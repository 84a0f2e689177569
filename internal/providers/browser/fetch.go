package browser

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/logging"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/nebula/internal/providers/http/client"
	"go.uber.org/zap"
)

// Document is the output of the pipeline for one navigation.
type Document struct {
	URL      string    `json:"url"`
	HTML     string    `json:"html"`
	Title    string    `json:"title"`
	Favicon  string    `json:"favicon,omitempty"`
	Backend  string    `json:"backend,omitempty"`
	Fallback bool      `json:"fallback"`
	Mode     Mode      `json:"mode"`
	Fetched  time.Time `json:"fetched_at"`
}

// Fetcher walks the relay chain.
type Fetcher struct {
	client   *client.Client
	backends []Backend
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// FetcherOptions carries optional collaborators.
type FetcherOptions struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
}

// NewFetcher creates a fetcher over backends, tried in slice order.
func NewFetcher(c *client.Client, backends []Backend, opts FetcherOptions) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Fetcher{
		client:   c,
		backends: append([]Backend(nil), backends...),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
}

// Backends returns the relay chain in priority order.
func (f *Fetcher) Backends() []Backend {
	return append([]Backend(nil), f.backends...)
}

// FetchViaProxy returns the first usable relay result, rewritten for the
// sandbox, or the local fallback document. It never fails and never
// returns empty HTML. Once ctx is done the remaining relays are skipped.
func (f *Fetcher) FetchViaProxy(ctx context.Context, target string) Document {
	if f.tracer != nil {
		var span *tracing.Span
		span, ctx = f.tracer.StartSpan(ctx, "fetch_via_proxy")
		defer func() {
			span.Finish()
			f.tracer.Submit(span)
		}()
		span.SetTag("url", target)
	}
	log := f.logger.With(logging.URL(target), tracing.Field(ctx))

	for _, b := range f.backends {
		if ctx.Err() != nil {
			log.Debug("fetch abandoned", zap.Error(ctx.Err()))
			break
		}

		timer := monitoring.NewTimer(f.metrics, b.Name)
		var page string
		_, err := f.client.Get(ctx, b.Name, b.URL(target), func(resp *client.Response) error {
			var err error
			page, err = b.extract(resp)
			return err
		})
		if err != nil {
			timer.Stop(outcome(err))
			log.Debug("relay failed", logging.Backend(b.Name), zap.Error(err))
			continue
		}
		timer.Stop(monitoring.OutcomeSuccess)

		meta := ExtractMetadata(page, target)
		if f.metrics != nil {
			f.metrics.RecordFetch(false)
		}
		log.Info("relay succeeded", logging.Backend(b.Name), zap.Int("bytes", len(page)))

		return Document{
			URL:     target,
			HTML:    Rewrite(page, target),
			Title:   meta.Title,
			Favicon: meta.Favicon,
			Backend: b.Name,
			Mode:    ModeProxied,
			Fetched: time.Now(),
		}
	}

	if f.metrics != nil {
		f.metrics.RecordFetch(true)
	}
	log.Warn("all relays failed, serving fallback document")
	return Fallback(target)
}

// Fallback returns the fallback document for target.
func Fallback(target string) Document {
	return Document{
		URL:      target,
		HTML:     FallbackDocument(target),
		Title:    FallbackTitle,
		Fallback: true,
		Mode:     ModeProxied,
		Fetched:  time.Now(),
	}
}

func outcome(err error) string {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return monitoring.OutcomeRejected
	}
	return monitoring.OutcomeFailure
}
