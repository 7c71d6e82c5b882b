package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tilestyle/pkg/observability"
)

func TestCacheEvents(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ctx := context.Background()

	c.OnCacheHit(ctx, "tile")
	c.OnCacheHit(ctx, "tile")
	c.OnCacheMiss(ctx, "tile")
	c.OnCacheStale(ctx, "style")
	c.OnCacheSet(ctx, "tile", 1024)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("tile", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("tile", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("style", "stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheWrites.WithLabelValues("tile")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.cacheBytes.WithLabelValues("tile")))
}

func TestHTTPEvents(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ctx := context.Background()

	c.OnRequest(ctx, "GET", "tiles.example.com", "/0/0/0.pbf")
	c.OnResponse(ctx, "GET", "tiles.example.com", "/0/0/0.pbf", 200, 20*time.Millisecond)
	c.OnResponse(ctx, "GET", "tiles.example.com", "/1/0/0.pbf", 503, 10*time.Millisecond)
	c.OnError(ctx, "GET", "tiles.example.com", "/1/0/0.pbf", errors.New("reset"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("tiles.example.com", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("tiles.example.com", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpErrors.WithLabelValues("tiles.example.com")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpLatency))
}

func TestStyleEvents(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ctx := context.Background()

	c.OnStyleParsed(ctx, 3, 12, time.Millisecond, nil)
	c.OnStyleParsed(ctx, 0, 0, time.Millisecond, errors.New("bad json"))
	c.OnRecalculate(ctx, 12, true, time.Millisecond)
	c.OnResourceFailed(ctx, "glyphs", errors.New("404"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.styleParses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.styleParses.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.styleSources))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.styleLayers))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resourceFailures.WithLabelValues("glyphs")))

	c.OnRecalculate(ctx, 12, false, time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.transitions))
}

func TestInstall(t *testing.T) {
	t.Cleanup(observability.Reset)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.Install()

	observability.Cache().OnCacheHit(context.Background(), "sprite")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("sprite", "hit")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 304: "3xx", 404: "4xx", 503: "5xx", 0: "other"}
	for code, want := range tests {
		assert.Equal(t, want, statusLabel(code), "code %d", code)
	}
}
