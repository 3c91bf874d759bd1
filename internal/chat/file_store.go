package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type session struct {
	Messages   []Turn    `json:"messages"`
	LastActive time.Time `json:"last_active"`
}

// FileStore 每本书一个 JSON 文件：dir/session_{bookID}.json。
// 同一本书的追加在进程内串行执行。
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *FileStore) lock(bookID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[bookID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[bookID] = l
	}
	return l
}

func (s *FileStore) path(bookID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("session_%s.json", bookID))
}

func (s *FileStore) load(bookID string) (*session, error) {
	data, err := os.ReadFile(s.path(bookID))
	if errors.Is(err, fs.ErrNotExist) {
		return &session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *FileStore) Append(ctx context.Context, bookID string, turn Turn) error {
	if err := validBookID(bookID); err != nil {
		return err
	}
	l := s.lock(bookID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.load(bookID)
	if err != nil {
		return err
	}
	sess.Messages = append(sess.Messages, turn)
	sess.LastActive = turn.Timestamp

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	// 先写临时文件再改名，避免写一半的文件
	tmp := s.path(bookID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path(bookID)); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (s *FileStore) History(ctx context.Context, bookID string) ([]Turn, error) {
	if err := validBookID(bookID); err != nil {
		return nil, err
	}
	l := s.lock(bookID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.load(bookID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

func (s *FileStore) Clear(ctx context.Context, bookID string) error {
	if err := validBookID(bookID); err != nil {
		return err
	}
	l := s.lock(bookID)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.path(bookID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
