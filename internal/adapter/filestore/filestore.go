// Package filestore is the terminal's durable local storage: small
// JSON documents that survive restarts and are cleared on logout.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

var _ port.CartSnapshots = (*CartSnapshots)(nil)

const (
	cartFile    = "cart.json"
	sessionFile = "session.json"
)

type CartSnapshots struct {
	path string
}

func NewCartSnapshots(dir string) (CartSnapshots, error) {
	const op = "NewCartSnapshots"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CartSnapshots{}, fmt.Errorf("%s: %w", op, err)
	}
	return CartSnapshots{path: filepath.Join(dir, cartFile)}, nil
}

func (s CartSnapshots) Save(
	ctx context.Context, es []domain.SnapshotEntry,
) error {
	const op = "CartSnapshots.Save"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writeJSON(s.path, es); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CartSnapshots) Load(
	ctx context.Context,
) ([]domain.SnapshotEntry, error) {
	const op = "CartSnapshots.Load"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var es []domain.SnapshotEntry
	err := readJSON(s.path, &es)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return es, nil
}

func (s CartSnapshots) Clear(ctx context.Context) error {
	const op = "CartSnapshots.Clear"

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// A SessionStore persists the auth session between restarts.
type SessionStore struct {
	path string
}

func NewSessionStore(dir string) (SessionStore, error) {
	const op = "NewSessionStore"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SessionStore{}, fmt.Errorf("%s: %w", op, err)
	}
	return SessionStore{path: filepath.Join(dir, sessionFile)}, nil
}

func (s SessionStore) Save(v domain.Session) error {
	const op = "SessionStore.Save"

	if err := writeJSON(s.path, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s SessionStore) Load() (domain.Session, error) {
	const op = "SessionStore.Load"

	var v domain.Session
	err := readJSON(s.path, &v)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Session{}, fmt.Errorf(
				"%s: %w", op, domain.ErrNotFound,
			)
		}
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s SessionStore) Clear() error {
	const op = "SessionStore.Clear"
	log := slog.With("op", op)

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("session cleared")
	return nil
}

// writeJSON writes through a temp file and rename, so a crash never
// leaves a truncated document behind.
func writeJSON(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
