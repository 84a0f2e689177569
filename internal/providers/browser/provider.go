package browser

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/nebula/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/nebula/internal/providers/http/client"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Provider is the compatibility pipeline: classify, fetch through relays,
// rewrite, and bridge navigation back out of the sandbox.
type Provider struct {
	classifier     *Classifier
	fetcher        *Fetcher
	client         *client.Client
	searchTemplate string
	sandboxPool    *sandbox.Pool
	logger         *zap.Logger
	metrics        *monitoring.Metrics
}

// Options configures a Provider. Policy and Proxy are required; the rest
// may be nil.
type Options struct {
	Policy  config.Policy
	Proxy   config.ProxyConfig
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
}

// New creates the pipeline.
func New(opts Options) (*Provider, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := client.Options{
		Timeout:         opts.Proxy.BackendTimeout,
		UserAgent:       opts.Proxy.UserAgent,
		MaxBodyBytes:    opts.Proxy.MaxBodyBytes,
		RateLimit:       opts.Proxy.RateLimit,
		BreakerFailures: opts.Proxy.BreakerFailures,
		BreakerCooldown: opts.Proxy.BreakerCooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("relay breaker state changed",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if opts.Metrics != nil {
				opts.Metrics.SetBreakerState(name, int(to))
			}
		},
	}
	httpClient := client.New(clientOpts)

	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 2)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox pool: %w", err)
	}

	backends := BackendsFromPolicy(opts.Policy.Backends)
	for _, b := range backends {
		httpClient.Breaker(b.Name)
		if opts.Metrics != nil {
			opts.Metrics.SetBreakerState(b.Name, int(resilience.StateClosed))
		}
	}

	return &Provider{
		classifier: NewClassifier(opts.Policy),
		fetcher: NewFetcher(httpClient, backends, FetcherOptions{
			Logger:  logger.Named("fetch"),
			Metrics: opts.Metrics,
			Tracer:  opts.Tracer,
		}),
		client:         httpClient,
		searchTemplate: opts.Policy.SearchTemplate,
		sandboxPool:    pool,
		logger:         logger,
		metrics:        opts.Metrics,
	}, nil
}

// Classify decides the render mode for a URL.
func (p *Provider) Classify(url string) Mode {
	mode := p.classifier.Classify(url)
	if p.metrics != nil {
		p.metrics.RecordClassification(string(mode))
	}
	return mode
}

// FetchViaProxy fetches url through the relay chain. See Fetcher.
func (p *Provider) FetchViaProxy(ctx context.Context, url string) Document {
	return p.fetcher.FetchViaProxy(ctx, url)
}

// Rewrite prepares HTML for the sandbox. See Rewrite.
func (p *Provider) Rewrite(html, origin string) string {
	return Rewrite(html, origin)
}

// Address normalizes address bar input with the configured search template.
func (p *Provider) Address(input string) (Address, error) {
	return NormalizeAddress(input, p.searchTemplate)
}

// NewBridge creates a bridge for one active view.
func (p *Provider) NewBridge() *Bridge {
	return NewBridge(p.logger.Named("bridge"), func(accepted bool) {
		if p.metrics == nil {
			return
		}
		if accepted {
			p.metrics.RecordBridgeMessage("accepted")
		} else {
			p.metrics.RecordBridgeMessage("ignored")
		}
	})
}

// Backends returns the relay names in priority order.
func (p *Provider) Backends() []string {
	bs := p.fetcher.Backends()
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}
	return names
}

// Breakers returns the state of every relay breaker.
func (p *Provider) Breakers() []resilience.Snapshot {
	return p.client.Breakers()
}

// SelfCheck runs the interception script in the embedded engine and
// verifies it loads once, forwards link clicks and leaves same-document
// fragment links alone.
func (p *Provider) SelfCheck(ctx context.Context) error {
	const origin = "https://selfcheck.invalid/page"
	page := sandbox.Page{URL: origin, BaseURI: origin}
	script := InterceptionScript()

	n, err := p.sandboxPool.Load(ctx, script, page, 2)
	if err != nil {
		return fmt.Errorf("interception script: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("interception script registered %d listeners after two loads", n)
	}

	res, err := p.sandboxPool.Click(ctx, script, page, sandbox.Anchor("/next"))
	if err != nil {
		return fmt.Errorf("interception script: %w", err)
	}
	if len(res.Messages) != 1 || !res.DefaultPrevented {
		return fmt.Errorf("interception script did not forward a link click")
	}
	if got, _ := ParseNavigate(encodeMessage(res.Messages[0].Data)); got != "https://selfcheck.invalid/next" {
		return fmt.Errorf("interception script forwarded %q", got)
	}

	res, err = p.sandboxPool.Click(ctx, script, page, sandbox.Anchor("#section"))
	if err != nil {
		return fmt.Errorf("interception script: %w", err)
	}
	if len(res.Messages) != 0 || res.DefaultPrevented {
		return fmt.Errorf("interception script intercepted a fragment link")
	}
	return nil
}

// Close releases the sandbox pool.
func (p *Provider) Close() error {
	return p.sandboxPool.Close()
}

func encodeMessage(data map[string]interface{}) []byte {
	b, err := sonic.Marshal(data)
	if err != nil {
		return nil
	}
	return b
}
