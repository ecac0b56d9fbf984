package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/metrics"
)

// MaxDocumentSize caps downloaded boundary documents.
const MaxDocumentSize = 256 << 20

// DefaultFetchTimeout bounds a boundary download when ctx has no deadline.
const DefaultFetchTimeout = 60 * time.Second

// Load reads a GeoJSON document from path.
func Load(path string) (*Collection, error) {
	defer metrics.Timer(metrics.BoundaryLoad)()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundaries: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Fetch returns the boundary document at url, served from cachePath when a
// copy exists there. A downloaded document is parsed before being written
// to cachePath so a bad download never poisons the cache. An empty
// cachePath disables caching.
func Fetch(ctx context.Context, url, cachePath string) (*Collection, error) {
	if cachePath != "" {
		if _, err := os.Stat(cachePath); err == nil {
			c, err := Load(cachePath)
			if err == nil {
				metrics.BoundaryCache.Hit()
				return c, nil
			}
			debug.Log("boundary cache %s unusable: %v", cachePath, err)
		}
	}
	metrics.BoundaryCache.Miss()

	defer metrics.Timer(metrics.BoundaryLoad)()
	data, err := download(ctx, url)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	if cachePath != "" {
		if err := writeAtomic(cachePath, data); err != nil {
			debug.Log("caching boundaries to %s: %v", cachePath, err)
		}
	}
	return c, nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building boundary request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching boundaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching boundaries: %s returned %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading boundary response: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("boundary document exceeds %d bytes", MaxDocumentSize)
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".geojson-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
