package shapefile

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureArchive zips a two-state shapefile under a repo-style directory,
// mirroring the layout of the GitHub archive.
func fixtureArchive(t *testing.T) []byte {
	t.Helper()

	dir := t.TempDir()
	writeFixture(t, filepath.Join(dir, "states.shp"), twoStateFixture())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		f, err := zw.Create("geomap-main/state_geo_files/" + e.Name())
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func archiveServer(t *testing.T, archive []byte, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCachingProvider_DownloadsOnFirstUse(t *testing.T) {
	var requests atomic.Int32
	srv := archiveServer(t, fixtureArchive(t), &requests)

	cacheDir := filepath.Join(t.TempDir(), "cache")
	p := NewCachingProvider(cacheDir, testLogger())
	p.ArchiveURL = srv.URL

	states, err := p.Boundaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, int32(1), requests.Load())

	// Second call must reuse the cache, not the network.
	states, err = p.Boundaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, int32(1), requests.Load())
}

func TestCachingProvider_ReusesExistingCache(t *testing.T) {
	cacheDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "nested"), 0o755))
	writeFixture(t, filepath.Join(cacheDir, "nested", "states.shp"), twoStateFixture())

	p := NewCachingProvider(cacheDir, testLogger())
	p.ArchiveURL = "http://127.0.0.1:0/unreachable.zip"

	states, err := p.Boundaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 2)
}

func TestCachingProvider_ReplacesStaleCache(t *testing.T) {
	var requests atomic.Int32
	srv := archiveServer(t, fixtureArchive(t), &requests)

	// A cache directory that exists but holds no shapefile, as left by an
	// interrupted extraction.
	cacheDir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	leftover := filepath.Join(cacheDir, "leftover.txt")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0o644))

	p := NewCachingProvider(cacheDir, testLogger())
	p.ArchiveURL = srv.URL

	states, err := p.Boundaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, int32(1), requests.Load())
	assert.NoFileExists(t, leftover)
}

func TestCachingProvider_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	p := NewCachingProvider(filepath.Join(t.TempDir(), "cache"), testLogger())
	p.ArchiveURL = srv.URL

	_, err := p.Boundaries(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srv.URL, fetchErr.URL)
}

func TestCachingProvider_Unreachable(t *testing.T) {
	p := NewCachingProvider(filepath.Join(t.TempDir(), "cache"), testLogger())
	p.ArchiveURL = "http://127.0.0.1:0/archive.zip"

	_, err := p.Boundaries(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestCachingProvider_NotAZip(t *testing.T) {
	var requests atomic.Int32
	srv := archiveServer(t, []byte("this is not a zip archive"), &requests)

	p := NewCachingProvider(filepath.Join(t.TempDir(), "cache"), testLogger())
	p.ArchiveURL = srv.URL

	_, err := p.Boundaries(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestCachingProvider_ArchiveWithoutShapefile(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("geomap-main/README.md")
	require.NoError(t, err)
	_, err = f.Write([]byte("no shapes here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var requests atomic.Int32
	srv := archiveServer(t, buf.Bytes(), &requests)

	p := NewCachingProvider(filepath.Join(t.TempDir(), "cache"), testLogger())
	p.ArchiveURL = srv.URL

	_, err = p.Boundaries(context.Background())
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestCachingProvider_CancelledContext(t *testing.T) {
	var requests atomic.Int32
	srv := archiveServer(t, fixtureArchive(t), &requests)

	p := NewCachingProvider(filepath.Join(t.TempDir(), "cache"), testLogger())
	p.ArchiveURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Boundaries(ctx)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}
