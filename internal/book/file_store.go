package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore 从磁盘 JSON 读取书籍：
// booksDir/book_{id}.json 为详情，overviewFile 为书籍列表
type FileStore struct {
	booksDir     string
	overviewFile string
}

func NewFileStore(booksDir, overviewFile string) *FileStore {
	return &FileStore{booksDir: booksDir, overviewFile: overviewFile}
}

func (s *FileStore) Book(ctx context.Context, id string) (*Book, error) {
	path := filepath.Join(s.booksDir, fmt.Sprintf("book_%s.json", id))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read book file: %w", err)
	}

	var b Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal book %s: %w", id, err)
	}
	if b.ID == "" {
		b.ID = id
	}
	return &b, nil
}

func (s *FileStore) Summary(ctx context.Context, id string) (*Summary, error) {
	data, err := os.ReadFile(s.overviewFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("books overview: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read books overview: %w", err)
	}

	var books []Summary
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("unmarshal books overview: %w", err)
	}
	for i := range books {
		if books[i].ID == id {
			return &books[i], nil
		}
	}
	return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
}
