package shapefile

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// DefaultArchiveURL is the fixed remote location of the boundary archive.
const DefaultArchiveURL = "https://github.com/kalyanidhusia/geomap/archive/refs/heads/main.zip"

// DefaultCacheDir returns the default boundary cache directory,
// ~/.us_state_geo.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".us_state_geo"
	}
	return filepath.Join(home, ".us_state_geo")
}

// CachingProvider downloads the boundary archive into a local cache
// directory on first use and reads state geometries from it. The cache is
// not locked; concurrent invocations sharing a cache directory are outside
// the supported usage.
type CachingProvider struct {
	// CacheDir is the directory holding the extracted archive.
	CacheDir string
	// ArchiveURL overrides DefaultArchiveURL, mainly for tests.
	ArchiveURL string
	// Client overrides http.DefaultClient, mainly for tests.
	Client *http.Client

	logger *slog.Logger
}

// NewCachingProvider creates a provider over the given cache directory.
func NewCachingProvider(cacheDir string, logger *slog.Logger) *CachingProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingProvider{
		CacheDir:   cacheDir,
		ArchiveURL: DefaultArchiveURL,
		logger:     logger,
	}
}

// Boundaries returns the state geometry set, downloading and extracting the
// archive if the cache does not already hold a shapefile. A single failed
// download aborts; there is no retry.
func (p *CachingProvider) Boundaries(ctx context.Context) ([]StateGeometry, error) {
	shpPath, err := p.findShapefile()
	if err != nil {
		return nil, err
	}
	if shpPath == "" {
		if err := p.populateCache(ctx); err != nil {
			return nil, err
		}
		shpPath, err = p.findShapefile()
		if err != nil {
			return nil, err
		}
		if shpPath == "" {
			return nil, &FormatError{Path: p.CacheDir, Reason: "downloaded archive contains no .shp file"}
		}
	}

	p.logger.Debug("Reading boundary shapefile", slog.String("path", shpPath))
	return ReadStates(shpPath)
}

// findShapefile locates a .shp file anywhere under the cache directory. It
// returns the empty string when the cache is absent or holds none.
func (p *CachingProvider) findShapefile() (string, error) {
	if _, err := os.Stat(p.CacheDir); os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("stat cache dir: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(p.CacheDir), "**/*.shp")
	if err != nil {
		return "", fmt.Errorf("search cache dir: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return filepath.Join(p.CacheDir, matches[0]), nil
}

// populateCache downloads the archive and extracts it into the cache
// directory. Extraction happens in a staging directory renamed into place,
// so an interrupted run never leaves a half-written cache behind.
func (p *CachingProvider) populateCache(ctx context.Context) error {
	url := p.ArchiveURL
	if url == "" {
		url = DefaultArchiveURL
	}

	p.logger.Info("Downloading boundary archive", slog.String("url", url))
	start := time.Now()

	archive, err := p.download(ctx, url)
	if err != nil {
		return err
	}
	defer os.Remove(archive)

	staging := p.CacheDir + ".staging-" + uuid.NewString()
	if err := extractZip(archive, staging); err != nil {
		os.RemoveAll(staging)
		return &FetchError{URL: url, Err: err}
	}
	if err := p.installCache(staging); err != nil {
		os.RemoveAll(staging)
		return err
	}

	p.logger.Info("Boundary archive cached",
		slog.String("dir", p.CacheDir),
		slog.Duration("took", time.Since(start)))
	return nil
}

// installCache moves the staging directory into place. A cache directory
// that exists but held no shapefile (for example an interrupted extraction
// from an older build) blocks the rename, so it is moved aside first and
// removed once the fresh cache is installed.
func (p *CachingProvider) installCache(staging string) error {
	err := os.Rename(staging, p.CacheDir)
	if err == nil {
		return nil
	}
	if _, statErr := os.Stat(p.CacheDir); statErr != nil {
		return fmt.Errorf("install cache dir: %w", err)
	}

	stale := p.CacheDir + ".stale-" + uuid.NewString()
	if err := os.Rename(p.CacheDir, stale); err != nil {
		return fmt.Errorf("move stale cache dir aside: %w", err)
	}
	if err := os.Rename(staging, p.CacheDir); err != nil {
		return fmt.Errorf("install cache dir: %w", err)
	}

	p.logger.Warn("Replaced stale cache directory", slog.String("dir", p.CacheDir))
	if err := os.RemoveAll(stale); err != nil {
		p.logger.Warn("Leaving stale cache directory behind",
			slog.String("dir", stale), slog.String("error", err.Error()))
	}
	return nil
}

// download fetches the archive to a temporary file and returns its path.
func (p *CachingProvider) download(ctx context.Context, url string) (string, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	tmp, err := os.CreateTemp("", "statemap-archive-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", &FetchError{URL: url, Err: err}
	}
	return tmp.Name(), nil
}

// extractZip unpacks a zip archive under dest, refusing entries that would
// escape it.
func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	for _, f := range zr.File {
		name := filepath.Clean(f.Name)
		if name == ".." || strings.HasPrefix(name, ".."+string(os.PathSeparator)) || filepath.IsAbs(name) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		target := filepath.Join(dest, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", name, err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open archive entry %s: %w", name, err)
		}
		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return fmt.Errorf("create %s: %w", name, err)
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	}
	return nil
}
