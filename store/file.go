package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rushteam/relaykit/core"
)

// FileStore 从本地目录读取快照文件，key 为相对 Root 的路径。
// 绝对路径的 key 原样使用。
type FileStore struct {
	Root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (f *FileStore) Name() string { return "file" }

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	path := key
	if !filepath.IsAbs(key) {
		path = filepath.Join(f.Root, key)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, core.ErrStoreNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (f *FileStore) Close() error { return nil }

var _ core.Store = (*FileStore)(nil)
