package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Digest identifies file contents by size and SHA256.
type Digest struct {
	Size   int64
	SHA256 string
}

// WriteFileAtomic streams fn's output to a temporary file next to path and
// renames it into place once fn, the sync, and the close all succeed. The
// temporary file is removed on failure so path is never left half-written.
func WriteFileAtomic(path string, mode os.FileMode, fn func(w io.Writer) error) (Digest, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Digest{}, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Digest{}, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	hasher := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher)}
	if err := fn(counter); err != nil {
		return Digest{}, err
	}
	if err := tmp.Sync(); err != nil {
		return Digest{}, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return Digest{}, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Digest{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return Digest{}, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return Digest{Size: counter.n, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// FileDigest hashes the file at path.
func FileDigest(path string) (Digest, error) {
	in, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer in.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, in)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Digest{Size: n, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
