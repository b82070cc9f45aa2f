package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitewatch/internal/config"
)

func TestRegistryCachesAdapterPerHost(t *testing.T) {
	registry := NewRegistry(nil, &stubFetcher{}, &stubRenderer{}, zap.NewNop())

	first, err := registry.For("http://example.org/page/one")
	require.NoError(t, err)
	second, err := registry.For("http://EXAMPLE.org/other")
	require.NoError(t, err)
	assert.Same(t, first, second, "same host must reuse the adapter")

	other, err := registry.For("http://another.example.com/")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestRegistryKeysByHostAndPort(t *testing.T) {
	overrides := map[string]config.SiteRules{
		"example.org:8080": {Adapter: "rules", SearchURL: "http://example.org:8080/s?q={query}"},
	}
	registry := NewRegistry(overrides, &stubFetcher{}, &stubRenderer{}, zap.NewNop())

	plain, err := registry.For("http://example.org/list")
	require.NoError(t, err)
	ported, err := registry.For("http://example.org:8080/list")
	require.NoError(t, err)
	assert.NotSame(t, plain, ported, "different ports are different sites")
	assert.IsType(t, &HeuristicAdapter{}, plain)
	assert.IsType(t, &RuleAdapter{}, ported, "an override keyed host:port must apply to that port")
}

func TestRegistrySelectsAdapterVariant(t *testing.T) {
	overrides := map[string]config.SiteRules{
		"ruled.example.com": {Adapter: "rules", SearchURL: "http://ruled.example.com/s?q={query}"},
	}
	registry := NewRegistry(overrides, &stubFetcher{}, &stubRenderer{}, zap.NewNop())

	ruled, err := registry.For("http://ruled.example.com/list")
	require.NoError(t, err)
	assert.IsType(t, &RuleAdapter{}, ruled)

	plain, err := registry.For("http://plain.example.com/list")
	require.NoError(t, err)
	assert.IsType(t, &HeuristicAdapter{}, plain)
}

func TestRegistryPassesFullURLAsAdapterBase(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"http://example.org/search?q=Notice-7": "<html></html>",
	}}
	registry := NewRegistry(nil, fetcher, &stubRenderer{}, zap.NewNop())

	adapter, err := registry.For("http://example.org/search?q={query}")
	require.NoError(t, err)
	_, err = adapter.Search(context.Background(), "Notice-7")
	require.NoError(t, err)
	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, "http://example.org/search?q=Notice-7", fetcher.calls[0])
}

func TestRegistryRejectsHostlessURL(t *testing.T) {
	registry := NewRegistry(nil, &stubFetcher{}, &stubRenderer{}, zap.NewNop())
	_, err := registry.For("not a url at all")
	assert.Error(t, err)
}
