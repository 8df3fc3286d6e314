package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/pslog"
)

// FileBackend stores each key as a JSON file inside a state directory.
type FileBackend struct {
	dir string
	log pslog.Logger
}

// NewFileBackend constructs a file backend at the given directory.
func NewFileBackend(dir string) (*FileBackend, error) {
	return NewFileBackendWithLogger(dir, nil)
}

// NewFileBackendWithLogger constructs a file backend with logging.
func NewFileBackendWithLogger(dir string, logger pslog.Logger) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &FileBackend{dir: dir, log: logger}, nil
}

// Get reads the value stored under key.
func (b *FileBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	data, err := os.ReadFile(b.pathForKey(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if b.log != nil {
				b.log.Debug("state load miss", "key", key)
			}
			return nil, false, nil
		}
		if b.log != nil {
			b.log.Warn("state load failed", "key", key, "err", err)
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set atomically replaces the value stored under key.
func (b *FileBackend) Set(ctx context.Context, key string, value []byte) error {
	_ = ctx
	path := b.pathForKey(key)
	if err := b.writeAtomic(path, value); err != nil {
		if b.log != nil {
			b.log.Warn("state save failed", "key", key, "err", err)
		}
		return err
	}
	if b.log != nil {
		b.log.Trace("state save ok", "key", key, "bytes", len(value))
	}
	return nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (b *FileBackend) pathForKey(key string) string {
	name := sanitize(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(b.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
