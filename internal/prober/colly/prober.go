// Package collyprober implements monitor.Prober by fetching a product's JSON representation with Colly.
package collyprober

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

const (
	defaultTimeout = 10 * time.Second
	defaultSuffix  = ".js"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Suffix is appended to the product URL path to get machine-readable product data.
	Suffix string
}

// Limiter paces requests per host.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Observer receives one call per probe.
type Observer func(product monitor.Product, result monitor.ProbeResult, d time.Duration)

// Prober fetches "<product url><suffix>" and classifies the variants' availability.
type Prober struct {
	cfg           Config
	limiter       Limiter
	observe       Observer
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// productPayload is the subset of the product document we read.
type productPayload struct {
	Variants []struct {
		Available *bool `json:"available"`
	} `json:"variants"`
}

// New builds a Prober. limiter and observe may be nil.
func New(cfg Config, limiter Limiter, observe Observer) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Suffix == "" {
		cfg.Suffix = defaultSuffix
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport(cfg.Timeout))
	c.SetRequestTimeout(cfg.Timeout)
	return &Prober{
		cfg:           cfg,
		limiter:       limiter,
		observe:       observe,
		baseCollector: c,
	}
}

// Probe performs one bounded fetch. It never returns an error: every failure becomes monitor.ProbeError.
func (p *Prober) Probe(ctx context.Context, product monitor.Product) monitor.ProbeResult {
	start := time.Now()
	result := p.probe(ctx, product)
	if p.observe != nil {
		p.observe(product, result, time.Since(start))
	}
	return result
}

func (p *Prober) probe(ctx context.Context, product monitor.Product) monitor.ProbeResult {
	endpoint, err := Endpoint(product.URL, p.cfg.Suffix)
	if err != nil {
		return monitor.Failed(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, endpoint); err != nil {
			return monitor.Failed(p.describe(err))
		}
	}

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector := p.buildCollector(&body, &status, &fetchErr)
	if err := p.runCollector(ctx, collector, endpoint, &fetchErr); err != nil {
		return monitor.Failed(p.describe(err))
	}
	if status != http.StatusOK {
		return monitor.Failed(fmt.Sprintf("unexpected status: %d %s", status, http.StatusText(status)))
	}
	return Classify(body)
}

// Classify parses a product document. Any available variant means the product is available.
func Classify(body []byte) monitor.ProbeResult {
	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return monitor.Failed(fmt.Sprintf("invalid product data: %v", err))
	}
	for _, v := range payload.Variants {
		if v.Available != nil && *v.Available {
			return monitor.Available()
		}
	}
	return monitor.Unavailable()
}

// Endpoint appends suffix to the path of productURL, keeping any query string.
func Endpoint(productURL, suffix string) (string, error) {
	u, err := url.Parse(productURL)
	if err != nil {
		return "", fmt.Errorf("invalid product url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid product url: %q is not absolute", productURL)
	}
	u.Path += suffix
	if u.RawPath != "" {
		u.RawPath += suffix
	}
	return u.String(), nil
}

func (p *Prober) buildCollector(body *[]byte, status *int, fetchErr *error) *colly.Collector {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.ParseHTTPErrorResponse = true
	collector.AllowURLRevisit = true
	p.configureCollectorHooks(collector, body, status, fetchErr)
	return collector
}

func (p *Prober) configureCollectorHooks(hooks collectorHooks, body *[]byte, status *int, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
	})

	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		*body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*status = r.StatusCode
		}
		*fetchErr = err
	})
}

func (p *Prober) runCollector(ctx context.Context, collector *colly.Collector, endpoint string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(endpoint)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch failed: %w", *fetchErr)
		}
		return nil
	}
}

// describe turns a fetch error into an operator-facing reason.
func (p *Prober) describe(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("timeout after %s: %v", p.cfg.Timeout, err)
	}
	return err.Error()
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
