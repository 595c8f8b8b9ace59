// Package production provides production integrations for the stream
// manager: snapshot persistence, transition publishing and table export.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/avssm/internal/core"
	"github.com/comalice/avssm/internal/primitives"
)

// filePersister stores one file per snapshot key under dir.
type filePersister struct {
	dir       string
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

func newFilePersister(dir, ext string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) (filePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return filePersister{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return filePersister{dir: dir, ext: ext, marshal: marshal, unmarshal: unmarshal}, nil
}

func (p filePersister) path(key string) string {
	return filepath.Join(p.dir, key+p.ext)
}

func (p filePersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := p.marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", p.ext[1:], err)
	}

	// Atomic replace via rename.
	fn := p.path(snapshot.Key())
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func (p filePersister) Load(ctx context.Context, key string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	fn := p.path(key)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Snapshot{}, fmt.Errorf("stream %q: %w", key, os.ErrNotExist)
		}
		return core.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snapshot core.Snapshot
	if err := p.unmarshal(data, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("%s unmarshal %s: %w", p.ext[1:], fn, err)
	}
	if err := validateSnapshot(key, snapshot); err != nil {
		return core.Snapshot{}, err
	}
	return snapshot, nil
}

func validateSnapshot(key string, s core.Snapshot) error {
	if !s.State.Valid() {
		return fmt.Errorf("stream %q: snapshot state %d is not a stream state", key, uint8(s.State))
	}
	if s.Key() != key {
		return fmt.Errorf("stream %q: snapshot belongs to %q", key, s.Key())
	}
	if s.TableVersion != "" && s.TableVersion != primitives.StreamTableVersion() {
		return fmt.Errorf("stream %q: snapshot table version %s, running %s", key, s.TableVersion, primitives.StreamTableVersion())
	}
	return nil
}

// JSONPersister is a file-based core.Persister using JSON serialization.
type JSONPersister struct {
	filePersister
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	fp, err := newFilePersister(dir, ".json", func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}, json.Unmarshal)
	if err != nil {
		return nil, err
	}
	return &JSONPersister{fp}, nil
}

// YAMLPersister is a file-based core.Persister using YAML serialization.
type YAMLPersister struct {
	filePersister
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	fp, err := newFilePersister(dir, ".yaml", yaml.Marshal, yaml.Unmarshal)
	if err != nil {
		return nil, err
	}
	return &YAMLPersister{fp}, nil
}

// NewPersister picks the persister for format (primitives.FormatJSON or
// primitives.FormatYAML).
func NewPersister(format, dir string) (core.Persister, error) {
	switch format {
	case primitives.FormatJSON, "":
		p, err := NewJSONPersister(dir)
		if err != nil {
			return nil, err
		}
		return p, nil
	case primitives.FormatYAML:
		p, err := NewYAMLPersister(dir)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}
