package intercept

import (
	"github.com/microfront/hoist/internal/config"
	"github.com/microfront/hoist/internal/dom"
	"github.com/microfront/hoist/internal/fetch"
	"github.com/microfront/hoist/internal/logging"
	"github.com/microfront/hoist/internal/monitoring"
	"github.com/microfront/hoist/internal/resilience"
	"github.com/microfront/hoist/internal/sandbox"
	"github.com/microfront/hoist/internal/script"
)

// Layer is the assembled interception stack: the fetch client, the
// sandbox runtime pool, the blob store, and the transform pipeline,
// built from configuration and reporting into the metrics collector.
// One Layer serves any number of documents via Intercept.
type Layer struct {
	fetcher  *fetch.Client
	pool     *sandbox.Pool
	blobs    *script.BlobStore
	pipeline *script.Pipeline
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewLayer wires the stack from configuration. logger and metrics may
// be nil; the components then log nowhere and count nothing.
func NewLayer(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) (*Layer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	fetcher := fetch.NewClient(fetch.Options{
		Timeout:    cfg.Fetch.Timeout,
		RetryMax:   cfg.Fetch.RetryMax,
		RetryWait:  cfg.Fetch.RetryWait,
		UserAgent:  "hoist-fetch/1.0",
		RatePerSec: cfg.Fetch.RatePerSec,
		Logger:     logger,
	})

	pool, err := sandbox.NewPool(sandbox.Config{
		Timeout:       cfg.Sandbox.Timeout,
		MaxCallStack:  1024,
		EnableConsole: true,
	}, cfg.Sandbox.PoolSize)
	if err != nil {
		return nil, err
	}

	blobs := script.NewBlobStore()
	pipeline := script.NewPipeline(fetcher.Text, blobs, logger)

	if metrics != nil {
		blobs.WithObserver(func(outstanding int) {
			metrics.BlobsOutstanding.Set(float64(outstanding))
		})
		pipeline.
			WithStaleObserver(metrics.StaleDiscards.Inc).
			WithTransformObserver(metrics.ScriptsTransformed.Inc)
		fetcher.Breaker().WithObserver(func(_ string, _, to resilience.State) {
			if to == resilience.StateOpen {
				metrics.FetchBreakerOpen.Set(1)
			} else {
				metrics.FetchBreakerOpen.Set(0)
			}
		})
	}

	return &Layer{
		fetcher:  fetcher,
		pool:     pool,
		blobs:    blobs,
		pipeline: pipeline,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Fetcher returns the shared fetch client.
func (l *Layer) Fetcher() *fetch.Client {
	return l.fetcher
}

// Pool returns the sandbox runtime pool apps draw their Sandbox from.
func (l *Layer) Pool() *sandbox.Pool {
	return l.pool
}

// Blobs returns the store serving installed script resources.
func (l *Layer) Blobs() *script.BlobStore {
	return l.blobs
}

// Pipeline returns the shared transform pipeline.
func (l *Layer) Pipeline() *script.Pipeline {
	return l.pipeline
}

// Intercept creates a patched interceptor over the document, backed by
// the layer's pipeline. The fetch client fills in as the link CSS
// fetcher when the options request link conversion without one.
func (l *Layer) Intercept(doc *dom.Document, oracle Oracle, opts Options) *Interceptor {
	if opts.ConvertLinkToStyle && opts.Fetch == nil {
		opts.Fetch = l.fetcher.Text
	}
	i := New(doc, oracle, l.pipeline, l.logger, l.metrics, opts)
	i.Patch()
	return i
}

// Close tears down the sandbox pool. Blobs remain servable.
func (l *Layer) Close() error {
	return l.pool.Close()
}
