package repo

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/modbot/pkg/retry"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return &Client{
		baseURL:    baseURL,
		maxArchive: 1 << 20,
		modsDir:    t.TempDir(),
		client:     &http.Client{Timeout: 5 * time.Second},
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2,
			InitialDelay:  time.Millisecond,
			MaxDelay:      10 * time.Millisecond,
			Jitter:        time.Millisecond,
		}),
		cache: NewSearchCache(10, time.Minute),
	}
}

func createTestArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "weather stuff", r.URL.Query().Get("q"))

		w.Write([]byte(`{
			"modIds": ["weather-pro", "weather-lite"],
			"res": {
				"mod/weather-pro": {"description": "Detailed forecasts", "version": "2.0.1"},
				"mod/weather-lite": {"description": "Basic forecasts"}
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.Search(context.Background(), "weather stuff")

	require.NoError(t, err)
	require.Equal(t, []string{"weather-pro", "weather-lite"}, result.ModIDs)
	assert.Equal(t, "Detailed forecasts", result.Describe("weather-pro"))
	assert.Equal(t, "Basic forecasts", result.Describe("weather-lite"))
}

func TestClientSearchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"modIds": [], "res": {}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.Search(context.Background(), "nothing here")

	require.NoError(t, err)
	assert.Empty(t, result.ModIDs)
	assert.NotNil(t, result.Mods)
}

func TestClientSearchCachesResults(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"modIds": ["chess"], "res": {"mod/chess": {"description": "Play chess"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.Search(ctx, "chess")
	require.NoError(t, err)
	result, err := c.Search(ctx, "chess")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second search should hit the cache")
	assert.Equal(t, []string{"chess"}, result.ModIDs)

	_, err = c.Search(ctx, "checkers")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "different terms should reach the registry")
}

func TestClientSearchRetriesServerErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"modIds": ["late"], "res": {"mod/late": {"description": "Eventually"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.Search(context.Background(), "late")

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, []string{"late"}, result.ModIDs)
}

func TestClientSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), "broken")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestClientSearchAuthToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"modIds": [], "res": {}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.authToken = "test-token-123"

	_, err := c.Search(context.Background(), "anything")
	require.NoError(t, err)
}

func TestClientInstall(t *testing.T) {
	archive := createTestArchive(t, map[string]string{
		"mod.json":  `{"name": "weather-pro", "command": "./weather"}`,
		"README.md": "# Weather Pro\n",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/download", r.URL.Path)
		assert.Equal(t, "weather-pro", r.URL.Query().Get("mod"))
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Install(context.Background(), "weather-pro")

	require.NoError(t, err)

	manifest, err := os.ReadFile(filepath.Join(c.modsDir, "weather-pro", "mod.json"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "weather-pro")

	readme, err := os.ReadFile(filepath.Join(c.modsDir, "weather-pro", "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# Weather Pro")
}

func TestClientInstallSubdirectories(t *testing.T) {
	archive := createTestArchive(t, map[string]string{
		"mod.json":          `{"name": "toolkit", "command": "./run.sh"}`,
		"scripts/helper.sh": "#!/bin/sh\necho hello",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Install(context.Background(), "toolkit"))

	data, err := os.ReadFile(filepath.Join(c.modsDir, "toolkit", "scripts", "helper.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo hello")
}

func TestClientInstallAlreadyInstalled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, os.MkdirAll(filepath.Join(c.modsDir, "weather-pro"), 0755))

	err := c.Install(context.Background(), "weather-pro")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already installed")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no download for an installed mod")
}

func TestClientInstallUnsafeModID(t *testing.T) {
	c := newTestClient(t, "https://registry.invalid")

	for _, id := range []string{"", "  ", "../evil", "a/b", `a\b`, "a..b"} {
		err := c.Install(context.Background(), id)
		require.Error(t, err, "id %q", id)
		assert.Contains(t, err.Error(), "invalid mod id")
	}
}

func TestClientInstallPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../../etc/passwd")
	require.NoError(t, err)
	w.Write([]byte("malicious"))
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err = c.Install(context.Background(), "sneaky")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsafe path")

	_, statErr := os.Stat(filepath.Join(c.modsDir, "sneaky"))
	assert.True(t, os.IsNotExist(statErr), "failed install must not leave a directory behind")
}

func TestClientInstallMissingManifest(t *testing.T) {
	archive := createTestArchive(t, map[string]string{
		"README.md": "no manifest here",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Install(context.Background(), "incomplete")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mod.json")

	_, statErr := os.Stat(filepath.Join(c.modsDir, "incomplete"))
	assert.True(t, os.IsNotExist(statErr), "failed install must not leave a directory behind")
}

func TestClientInstallArchiveTooLarge(t *testing.T) {
	archive := createTestArchive(t, map[string]string{
		"mod.json": `{"name": "big", "command": "./big"}`,
		"blob.bin": string(bytes.Repeat([]byte("x"), 4096)),
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	// Smaller than any zip container, the download itself trips the cap.
	c.maxArchive = 64

	err := c.Install(context.Background(), "big")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestClientInstallDownloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Install(context.Background(), "ghost")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download")

	_, statErr := os.Stat(filepath.Join(c.modsDir, "ghost"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClientUninstall(t *testing.T) {
	c := newTestClient(t, "https://registry.invalid")

	modDir := filepath.Join(c.modsDir, "weather-pro")
	require.NoError(t, os.MkdirAll(modDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modDir, "mod.json"), []byte("{}"), 0644))

	err := c.Uninstall(context.Background(), "weather-pro")

	require.NoError(t, err)
	_, statErr := os.Stat(modDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClientUninstallNotInstalled(t *testing.T) {
	c := newTestClient(t, "https://registry.invalid")

	err := c.Uninstall(context.Background(), "ghost")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}

func TestClientUninstallUnsafeModID(t *testing.T) {
	c := newTestClient(t, "https://registry.invalid")

	err := c.Uninstall(context.Background(), "../evil")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mod id")
}
