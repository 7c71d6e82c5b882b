package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tilestyle/pkg/style"
	"github.com/matzehuels/tilestyle/pkg/transform"
)

func newTestServer(t *testing.T) (*server, *httptest.Server) {
	t.Helper()
	c := newTestCLI(t)
	ctx, cancel := context.WithCancel(context.Background())

	e, err := c.newEngine(ctx)
	require.NoError(t, err)
	require.NoError(t, e.open(ctx, writeStyle(t, testStyle), nil))

	srv := newServer(e, transform.State{Width: 512, Height: 512}, prometheus.NewRegistry())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.run(ctx)
	}()

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
		e.Close()
	})
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func put(t *testing.T, url, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestServeReportsStyle(t *testing.T) {
	_, ts := newTestServer(t)

	assert.Eventually(t, func() bool {
		return getJSON(t, ts.URL+"/readyz", nil) == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	var snap style.Snapshot
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/style", &snap))
	assert.Equal(t, "Test", snap.Name)

	var layers []style.LayerSnapshot
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/style/layers", &layers))
	require.Len(t, layers, 1)
	assert.Equal(t, "rgba(255,255,255,1)", layers[0].Paint["background-color"])

	var layer style.LayerSnapshot
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/style/layers/bg", &layer))
	assert.Equal(t, "background", layer.Type)
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/style/layers/nope", nil))
}

func TestServeChangesClasses(t *testing.T) {
	_, ts := newTestServer(t)

	require.Equal(t, http.StatusAccepted, put(t, ts.URL+"/style/classes", `{"classes": ["night"]}`))
	assert.Eventually(t, func() bool {
		var layer style.LayerSnapshot
		getJSON(t, ts.URL+"/style/layers/bg", &layer)
		return layer.Paint["background-color"] == "rgba(0,0,0,1)"
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, http.StatusBadRequest, put(t, ts.URL+"/style/classes", `{`))
}

func TestServeChangesView(t *testing.T) {
	srv, ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, put(t, ts.URL+"/view", `{"zoom": 3}`), "zero size")
	require.Equal(t, http.StatusAccepted, put(t, ts.URL+"/view", `{"center": [13.4, 52.5], "zoom": 3, "width": 256, "height": 256}`))

	// The view is owned by the controller; read it from there.
	got := make(chan transform.State, 1)
	assert.Eventually(t, func() bool {
		srv.e.loop.Post(func() { got <- srv.view })
		v := <-got
		return v.Zoom == 3 && v.Width == 256
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServeMetricsAndHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
