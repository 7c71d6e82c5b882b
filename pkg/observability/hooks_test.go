package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	s := NoopStyleHooks{}
	s.OnStyleParsed(ctx, 2, 10, time.Millisecond, nil)
	s.OnRecalculate(ctx, 10, true, time.Millisecond)
	s.OnResourceFailed(ctx, "tile", nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "tile")
	c.OnCacheMiss(ctx, "sprite")
	c.OnCacheStale(ctx, "glyphs")
	c.OnCacheSet(ctx, "tile", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "tiles.example.com", "/0/0/0.pbf")
	h.OnResponse(ctx, "GET", "tiles.example.com", "/0/0/0.pbf", 200, time.Second)
	h.OnError(ctx, "GET", "tiles.example.com", "/0/0/0.pbf", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Style().(NoopStyleHooks); !ok {
		t.Error("Style() should return NoopStyleHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customStyle := &testStyleHooks{}
	SetStyleHooks(customStyle)
	if Style() != customStyle {
		t.Error("SetStyleHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Style().(NoopStyleHooks); !ok {
		t.Error("Reset() should restore NoopStyleHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCacheHooks{}
	SetCacheHooks(custom)
	SetCacheHooks(nil)

	if Cache() != custom {
		t.Error("SetCacheHooks(nil) should be ignored")
	}
	Reset()
}

type testStyleHooks struct{ NoopStyleHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
