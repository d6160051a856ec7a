package mnist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/born-ml/nodekit/internal/progress"
)

// DefaultCacheDir returns $NODEKIT_HOME/datasets, or ~/.nodekit/datasets
// when NODEKIT_HOME is unset.
func DefaultCacheDir() string {
	if home := os.Getenv("NODEKIT_HOME"); home != "" {
		return filepath.Join(home, "datasets")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "nodekit", "datasets")
	}
	return filepath.Join(home, ".nodekit", "datasets")
}

// ensureCacheDir creates dir and checks that it is writable. When it is
// not, it falls back to a directory under the OS temp dir.
func ensureCacheDir(dir string, logger *zap.Logger) (string, error) {
	err := writable(dir)
	if err == nil {
		return dir, nil
	}
	fallback := filepath.Join(os.TempDir(), "nodekit", "datasets")
	logger.Warn("cache directory not writable, using temp dir",
		zap.String("dir", dir), zap.String("fallback", fallback), zap.Error(err))
	if err := writable(fallback); err != nil {
		return "", fmt.Errorf("no writable cache directory: %w", err)
	}
	return fallback, nil
}

func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// fileDigest returns the hex SHA-256 of the file at path.
func fileDigest(path string) (string, error) {
	//nolint:gosec // G304: path is inside the cache directory
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type fetcher struct {
	client   *http.Client
	dir      string
	logger   *zap.Logger
	progress io.Writer
}

// fetch makes sure name is in the cache with the given digest, downloading
// it from url when it is missing or corrupt. An empty digest skips
// verification.
func (f *fetcher) fetch(ctx context.Context, url, name, digest string, bar *progress.Bar) (string, error) {
	path := filepath.Join(f.dir, name)
	log := f.logger.With(zap.String("file", name))

	switch got, err := fileDigest(path); {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return "", fmt.Errorf("check cached %s: %w", name, err)
	case digest == "" || got == digest:
		log.Debug("using cached file", zap.String("path", path))
		return path, nil
	default:
		log.Warn("cached file has a bad digest, downloading again", zap.String("sha256", got))
	}

	log.Info("downloading", zap.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", name, resp.Status)
	}

	if bar == nil {
		out := progress.Disabled()
		if f.progress != nil {
			out = progress.WithWriter(f.progress)
		}
		bar = progress.New(max(resp.ContentLength, 0), progress.WithBytes(), progress.WithDescription(name), out)
		defer bar.Close()
	}

	tmp, err := os.CreateTemp(f.dir, name+".part*")
	if err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), progress.NewReader(resp.Body, bar))
	if err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); digest != "" && got != digest {
		return "", fmt.Errorf("%w: %s: got %s, want %s", ErrChecksum, name, got, digest)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	committed = true
	log.Info("downloaded", zap.Int64("bytes", n), zap.String("path", path))
	return path, nil
}
