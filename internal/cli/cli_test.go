package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tilestyle/internal/config"
	"github.com/matzehuels/tilestyle/pkg/cache"
	"github.com/matzehuels/tilestyle/pkg/style"
)

const testStyle = `{
	"version": 8,
	"name": "Test",
	"sources": {},
	"layers": [{
		"id": "bg",
		"type": "background",
		"paint": {"background-color": "white", "background-opacity": 0.5},
		"paint.night": {"background-color": "black"}
	}]
}`

// isolate points every environment lookup at a temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv(config.EnvAccessToken, "")
	t.Setenv(config.EnvMapboxAccessToken, "")
	t.Setenv(config.EnvConfig, "")
	return dir
}

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	c.Config = config.Default()
	c.Config.CacheBackend = config.BackendNone
	c.Config.CacheDir = t.TempDir()
	return c
}

func writeStyle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "style.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLoadFlags() loadFlags {
	return loadFlags{viewFlags: viewFlags{center: "0,0", size: "512x512", timeout: 5 * time.Second}}
}

// =============================================================================
// Config and flags
// =============================================================================

func TestGlobalFlagsApply(t *testing.T) {
	tests := []struct {
		name  string
		flags globalFlags
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name:  "none set keeps config",
			flags: globalFlags{},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, config.BackendFile, cfg.CacheBackend)
				assert.Empty(t, cfg.AccessToken)
			},
		},
		{
			name:  "token and backend",
			flags: globalFlags{accessToken: "pk.flag", cacheBackend: config.BackendMemory},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, "pk.flag", cfg.AccessToken)
				assert.Equal(t, config.BackendMemory, cfg.CacheBackend)
			},
		},
		{
			name:  "no-cache wins over --cache",
			flags: globalFlags{cacheBackend: config.BackendRedis, noCache: true},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, config.BackendNone, cfg.CacheBackend)
			},
		},
		{
			name:  "no-revalidate",
			flags: globalFlags{noRevalidate: true},
			check: func(t *testing.T, cfg config.Config) {
				assert.True(t, cfg.NoRevalidate)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.flags.apply(&cfg)
			tt.check(t, cfg)
		})
	}
}

func TestRootCommandLoadsConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.toml")
	require.NoError(t, os.WriteFile(path, []byte(`cache_dir = "/srv/tiles"`), 0o644))

	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "--token", "pk.flag", "cache", "path"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "/srv/tiles\n", out.String())
	assert.Equal(t, "pk.flag", c.Config.AccessToken)
}

func TestRootCommandRejectsBadBackend(t *testing.T) {
	isolate(t)
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--cache", "s3", "cache", "path"})
	assert.Error(t, root.Execute())
}

// =============================================================================
// Store factory
// =============================================================================

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	base := config.Default()
	base.CacheDir = t.TempDir()

	tests := []struct {
		name    string
		backend string
		token   string
		check   func(t *testing.T, s cache.Store)
	}{
		{"none", config.BackendNone, "", func(t *testing.T, s cache.Store) {
			assert.IsType(t, &cache.NullStore{}, s)
		}},
		{"memory", config.BackendMemory, "", func(t *testing.T, s cache.Store) {
			assert.IsType(t, &cache.MemoryStore{}, s)
		}},
		{"file is tiered", config.BackendFile, "", func(t *testing.T, s cache.Store) {
			assert.IsType(t, &cache.TieredStore{}, s)
		}},
		{"token scopes keys", config.BackendMemory, "pk.secret", func(t *testing.T, s cache.Store) {
			assert.IsType(t, &cache.ScopedStore{}, s)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.CacheBackend = tt.backend
			cfg.AccessToken = tt.token
			s, err := openStore(ctx, cfg)
			require.NoError(t, err)
			defer s.Close()
			tt.check(t, s)
		})
	}
}

func TestOpenStoreTokensDoNotShareEntries(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.CacheBackend = config.BackendFile
	cfg.CacheDir = t.TempDir()

	cfg.AccessToken = "pk.one"
	one, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer one.Close()
	require.NoError(t, one.Put(ctx, "https://example.com/a", &cache.Entry{Data: []byte("private")}))

	cfg.AccessToken = "pk.two"
	two, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer two.Close()
	_, ok, err := two.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// Commands
// =============================================================================

func TestLoadPrintsLayers(t *testing.T) {
	c := newTestCLI(t)
	var out, status bytes.Buffer

	err := c.runLoad(context.Background(), &out, &status, writeStyle(t, testStyle), testLoadFlags())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Test")
	assert.Contains(t, text, "bg")
	assert.Contains(t, text, "background-opacity = 0.5")
}

func TestLoadJSONWithClass(t *testing.T) {
	c := newTestCLI(t)
	flags := testLoadFlags()
	flags.json = true
	flags.classes = []string{"night"}
	var out bytes.Buffer

	err := c.runLoad(context.Background(), &out, io.Discard, writeStyle(t, testStyle), flags)
	require.NoError(t, err)

	var snap style.Snapshot
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.True(t, snap.Loaded)
	assert.Equal(t, []string{"night"}, snap.Classes)
	require.Len(t, snap.Layers, 1)
	assert.Equal(t, "bg", snap.Layers[0].ID)
	assert.Contains(t, snap.Layers[0].Paint, "background-color")
}

func TestLoadErrors(t *testing.T) {
	c := newTestCLI(t)

	err := c.runLoad(context.Background(), io.Discard, io.Discard, filepath.Join(t.TempDir(), "missing.json"), testLoadFlags())
	assert.ErrorContains(t, err, "read style")

	err = c.runLoad(context.Background(), io.Discard, io.Discard, writeStyle(t, `{"version": 8,`), testLoadFlags())
	assert.ErrorContains(t, err, "load style")

	flags := testLoadFlags()
	flags.size = "0x10"
	err = c.runLoad(context.Background(), io.Discard, io.Discard, writeStyle(t, testStyle), flags)
	assert.ErrorContains(t, err, "size")
}

func TestCacheGetAndRemove(t *testing.T) {
	isolate(t)
	c := newTestCLI(t)
	c.Config.CacheBackend = config.BackendFile
	ctx := context.Background()

	store, err := openStore(ctx, c.Config)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "https://example.com/style.json", &cache.Entry{
		Data:    []byte("{}"),
		Expires: time.Now().Add(time.Hour),
		ETag:    `"v1"`,
	}))
	require.NoError(t, store.Close())

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := c.cacheCommand()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.ExecuteContext(ctx))
		return out.String()
	}

	got := run("get", "https://example.com/style.json")
	assert.Contains(t, got, "2 bytes")
	assert.Contains(t, got, `"v1"`)
	assert.Contains(t, got, "true")

	run("rm", "https://example.com/style.json")
	assert.Contains(t, run("get", "https://example.com/style.json"), "Not cached")
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ab/one.json", "ab/two.json", "cd/three.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}

	n, err := clearDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	n, err = clearDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "visible", formatValue("visible"))
	assert.Equal(t, "0.5", formatValue(0.5))
	assert.Equal(t, "[1,2]", formatValue([]float64{1, 2}))
	assert.True(t, strings.HasPrefix(formatValue(style.Black), "rgba("), formatValue(style.Black))
}

func TestCompletion(t *testing.T) {
	isolate(t)
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "zsh"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tilestyle")

	root.SetArgs([]string{"completion", "tcsh"})
	root.SetErr(io.Discard)
	assert.Error(t, root.Execute())
}
