package sessions

import (
	"context"
	"os"
	"time"

	"github.com/jrsteele09/cartcash/internal/config"
	"github.com/jrsteele09/cartcash/internal/fileutil"
	"github.com/jrsteele09/cartcash/sessions/kvstorage"
	"github.com/pkg/errors"
)

// Medium persists the whole session snapshot. Load returns nil data when
// nothing has been saved yet.
type Medium interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// quarantiner is implemented by media that can move an unreadable snapshot
// out of the way so the next save does not overwrite it.
type quarantiner interface {
	Quarantine(ctx context.Context, at time.Time) (string, error)
}

func corruptSuffix(at time.Time) string {
	return ".corrupt-" + at.UTC().Format("20060102T150405Z")
}

// FileMedium keeps the snapshot in a single JSON file on the server.
type FileMedium struct {
	path string
}

var _ Medium = (*FileMedium)(nil)

func NewFileMedium(path string) *FileMedium {
	return &FileMedium{path: path}
}

func (m *FileMedium) Name() string { return config.BackendFile }

func (m *FileMedium) Path() string { return m.path }

func (m *FileMedium) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileMedium.Load] read snapshot")
	}
	return data, nil
}

func (m *FileMedium) Save(_ context.Context, data []byte) error {
	if err := fileutil.WriteAtomic(m.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileMedium.Save] write snapshot")
	}
	return nil
}

// Quarantine renames the snapshot file to <path>.corrupt-<timestamp>.
func (m *FileMedium) Quarantine(_ context.Context, at time.Time) (string, error) {
	dest := m.path + corruptSuffix(at)
	if err := os.Rename(m.path, dest); err != nil {
		return "", errors.Wrap(err, "[FileMedium.Quarantine] rename snapshot")
	}
	return dest, nil
}

// KVMedium keeps the snapshot under one key of a web-storage style store.
type KVMedium struct {
	storage kvstorage.Storage
	key     string
}

var _ Medium = (*KVMedium)(nil)

func NewKVMedium(storage kvstorage.Storage, key string) *KVMedium {
	if key == "" {
		key = config.DefaultSessionKey
	}
	return &KVMedium{storage: storage, key: key}
}

func (m *KVMedium) Name() string { return config.BackendKV }

func (m *KVMedium) Load(ctx context.Context) ([]byte, error) {
	value, ok, err := m.storage.GetItem(ctx, m.key)
	if err != nil {
		return nil, errors.Wrapf(err, "[KVMedium.Load] get %s", m.key)
	}
	if !ok {
		return nil, nil
	}
	return []byte(value), nil
}

func (m *KVMedium) Save(ctx context.Context, data []byte) error {
	if err := m.storage.SetItem(ctx, m.key, string(data)); err != nil {
		return errors.Wrapf(err, "[KVMedium.Save] set %s", m.key)
	}
	return nil
}

// Quarantine copies the snapshot to <key>.corrupt-<timestamp> and removes the
// original key.
func (m *KVMedium) Quarantine(ctx context.Context, at time.Time) (string, error) {
	value, ok, err := m.storage.GetItem(ctx, m.key)
	if err != nil {
		return "", errors.Wrapf(err, "[KVMedium.Quarantine] get %s", m.key)
	}
	if !ok {
		return "", nil
	}
	dest := m.key + corruptSuffix(at)
	if err := m.storage.SetItem(ctx, dest, value); err != nil {
		return "", errors.Wrapf(err, "[KVMedium.Quarantine] set %s", dest)
	}
	if err := m.storage.RemoveItem(ctx, m.key); err != nil {
		return "", errors.Wrapf(err, "[KVMedium.Quarantine] remove %s", m.key)
	}
	return dest, nil
}
