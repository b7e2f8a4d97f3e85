package cacheproxy

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fieldtally/internal/config"
	"fieldtally/internal/logging"
)

// HTTPDoer describes the HTTP client used for upstream fetches.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Proxy intercepts the application's outbound traffic and applies a per-route
// caching strategy. It is the service-worker equivalent of the client: the UI
// points at the proxy's bind address instead of the remote origin.
type Proxy struct {
	upstream *url.URL
	doer     HTTPDoer
	cache    *Store
	routes   *RouteTable
	logger   *slog.Logger
}

// New builds a proxy from configuration: it opens the cache store, activates
// the configured generation, and loads the route table.
func New(cfg *config.Config, logger *slog.Logger) (*Proxy, error) {
	upstream, err := url.Parse(cfg.Remote.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}

	cache, err := OpenStore(cfg.CacheDBPath(), cfg.Proxy.Generation)
	if err != nil {
		return nil, err
	}

	routes, err := LoadRoutes(cfg.Proxy.RoutesPath)
	if err != nil {
		cache.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	return NewWithParts(upstream, &http.Client{Timeout: timeout}, cache, routes, logger), nil
}

// NewWithParts wires a proxy from explicit collaborators; tests inject fakes
// here.
func NewWithParts(upstream *url.URL, doer HTTPDoer, cache *Store, routes *RouteTable, logger *slog.Logger) *Proxy {
	return &Proxy{
		upstream: upstream,
		doer:     doer,
		cache:    cache,
		routes:   routes,
		logger:   logging.NewComponentLogger(logger, "cacheproxy"),
	}
}

// Close releases the cache store.
func (p *Proxy) Close() error {
	return p.cache.Close()
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.IsAbs() && !strings.EqualFold(r.URL.Host, p.upstream.Host) {
		p.passthrough(w, r, r.URL)
		return
	}

	target := p.upstream.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	class := p.routes.Classify(r.Method, r.URL.Path)

	switch class {
	case ClassShell:
		p.serveShell(w, r, target)
	case ClassAPIRead:
		p.serveRead(w, r, target)
	case ClassAPIMutation:
		p.serveMutation(w, r, target)
	default:
		p.passthrough(w, r, target)
	}
}

// serveShell is cache-first: cached bytes win, the network only fills misses.
func (p *Proxy) serveShell(w http.ResponseWriter, r *http.Request, target *url.URL) {
	key := target.String()
	if entry, ok, err := p.cache.Get(r.Context(), http.MethodGet, key); err == nil && ok {
		writeEntry(w, entry)
		return
	} else if err != nil {
		p.logger.Warn("cache read failed",
			logging.Error(err),
			logging.String("url", key),
			logging.String(logging.FieldEventType, "cache_read_failed"),
			logging.String(logging.FieldImpact, "falling back to network"),
		)
	}

	resp, err := p.forward(r, target)
	if err != nil {
		p.writeOffline(w)
		return
	}
	defer resp.Body.Close()
	p.relayAndMaybeCache(w, r, resp, key, resp.StatusCode >= 200 && resp.StatusCode <= 299)
}

// serveRead is network-first: a fresh response overwrites the cache, and the
// cache only answers when the transport itself fails.
func (p *Proxy) serveRead(w http.ResponseWriter, r *http.Request, target *url.URL) {
	key := target.String()
	resp, err := p.forward(r, target)
	if err != nil {
		if entry, ok, cacheErr := p.cache.Get(r.Context(), http.MethodGet, key); cacheErr == nil && ok {
			writeEntry(w, entry)
			return
		}
		p.writeOffline(w)
		return
	}
	defer resp.Body.Close()

	cacheable := r.Method == http.MethodGet && resp.StatusCode >= 200 && resp.StatusCode <= 299
	p.relayAndMaybeCache(w, r, resp, key, cacheable)
}

// serveMutation goes straight to the network and never touches the cache;
// offline durability of writes belongs to the dispatcher and outbox layer.
func (p *Proxy) serveMutation(w http.ResponseWriter, r *http.Request, target *url.URL) {
	resp, err := p.forward(r, target)
	if err != nil {
		p.writeOffline(w)
		return
	}
	defer resp.Body.Close()
	relay(w, resp)
}

func (p *Proxy) passthrough(w http.ResponseWriter, r *http.Request, target *url.URL) {
	resp, err := p.forward(r, target)
	if err != nil {
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	relay(w, resp)
}

func (p *Proxy) relayAndMaybeCache(w http.ResponseWriter, r *http.Request, resp *http.Response, key string, cacheable bool) {
	if !cacheable {
		relay(w, resp)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCachedBody))
	if err != nil {
		p.writeOffline(w)
		return
	}

	entry := &Entry{
		StatusCode: resp.StatusCode,
		Header:     cacheableHeaders(resp.Header),
		Body:       body,
	}
	if err := p.cache.Put(r.Context(), http.MethodGet, key, entry); err != nil {
		p.logger.Warn("cache write failed",
			logging.Error(err),
			logging.String("url", key),
			logging.String(logging.FieldEventType, "cache_write_failed"),
			logging.String(logging.FieldImpact, "response served but not cached"),
		)
	}

	copyHeaders(w.Header(), entry.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

const maxCachedBody = 16 << 20

func (p *Proxy) forward(r *http.Request, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, err
	}
	req.Header = filterHopByHop(r.Header)
	return p.doer.Do(req)
}

func (p *Proxy) writeOffline(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = io.WriteString(w, `{"error":"offline","cached":false}`)
}

func writeEntry(w http.ResponseWriter, entry *Entry) {
	copyHeaders(w.Header(), entry.Header)
	w.Header().Set("X-Fieldtally-Cache", "hit")
	w.WriteHeader(entry.StatusCode)
	_, _ = w.Write(entry.Body)
}

func relay(w http.ResponseWriter, resp *http.Response) {
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

func filterHopByHop(header http.Header) http.Header {
	out := header.Clone()
	for _, key := range hopByHopHeaders {
		out.Del(key)
	}
	return out
}

// cacheableHeaders keeps only the headers worth replaying from cache.
func cacheableHeaders(header http.Header) http.Header {
	out := http.Header{}
	for _, key := range []string{"Content-Type", "Etag", "Last-Modified", "Cache-Control"} {
		if value := header.Get(key); value != "" {
			out.Set(key, value)
		}
	}
	return out
}
