package site

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"sitewatch/internal/config"
)

// Registry hands out one adapter per site host and caches it for the rest of
// the run. The pipeline is single threaded, so the cache needs no locking.
type Registry struct {
	adapters  map[string]Adapter
	overrides map[string]config.SiteRules
	http      Fetcher
	browser   Renderer
	logger    *zap.Logger
}

func NewRegistry(overrides map[string]config.SiteRules, httpClient Fetcher, browser Renderer, logger *zap.Logger) *Registry {
	return &Registry{
		adapters:  make(map[string]Adapter),
		overrides: overrides,
		http:      httpClient,
		browser:   browser,
		logger:    logger,
	}
}

// For returns the adapter responsible for rawURL, creating it on first use.
// Hosts with a "rules" override get the rule driven adapter, everything else
// falls back to the heuristic one.
func (r *Registry) For(rawURL string) (Adapter, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url %q: %w", rawURL, err)
	}
	// host:port, matching the keys accepted in site_overrides. Two ports on
	// one host are treated as separate sites.
	host := strings.ToLower(parsed.Host)
	if host == "" {
		return nil, fmt.Errorf("site url %q has no host", rawURL)
	}

	if adapter, ok := r.adapters[host]; ok {
		return adapter, nil
	}

	// The first URL seen for a host becomes the adapter's base; it may
	// itself carry a {query} placeholder.
	rules := r.overrides[host]

	var adapter Adapter
	if rules.Adapter == "rules" {
		r.logger.Debug("creating rule adapter", zap.String("host", host))
		adapter = NewRuleAdapter(rawURL, rules, r.http, r.browser)
	} else {
		r.logger.Debug("creating heuristic adapter", zap.String("host", host))
		adapter = NewHeuristicAdapter(rawURL, rules, r.http, r.browser)
	}
	r.adapters[host] = adapter
	return adapter, nil
}
