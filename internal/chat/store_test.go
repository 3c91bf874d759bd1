package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liao/bookchat/internal/ai"
)

func newRedisStore(t *testing.T) *RedisStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "test:history:")
}

func newFileStore(t *testing.T) *FileStore {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"file":  newFileStore(t),
		"redis": newRedisStore(t),
	}
}

func contents(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Role + ":" + t.Content
	}
	return out
}

func TestStore_AppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var want []string
			for i := 0; i < 3; i++ {
				q := fmt.Sprintf("question %d", i)
				a := fmt.Sprintf("answer %d", i)
				require.NoError(t, s.Append(ctx, "42", NewTurn(RoleUser, q)))
				require.NoError(t, s.Append(ctx, "42", NewTurn(RoleAssistant, a)))
				want = append(want, "user:"+q, "assistant:"+a)
			}

			got, err := s.History(ctx, "42")
			require.NoError(t, err)
			assert.Equal(t, want, contents(got))
		})
	}
}

func TestStore_BooksAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Append(ctx, "1", NewTurn(RoleUser, "about book one")))
			require.NoError(t, s.Append(ctx, "2", NewTurn(RoleUser, "about book two")))

			got, err := s.History(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, []string{"user:about book one"}, contents(got))
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Append(ctx, "42", NewTurn(RoleUser, "hi")))
			require.NoError(t, s.Clear(ctx, "42"))

			got, err := s.History(ctx, "42")
			require.NoError(t, err)
			assert.Empty(t, got)

			// 清空不存在的历史不报错
			assert.NoError(t, s.Clear(ctx, "never-used"))
		})
	}
}

func TestStore_EmptyHistory(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.History(ctx, "unknown")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_RejectsPathLikeIDs(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "../etc", "a/b", `a\b`} {
				assert.ErrorIs(t, s.Append(ctx, id, NewTurn(RoleUser, "x")), ErrInvalidBookID, id)
				_, err := s.History(ctx, id)
				assert.ErrorIs(t, err, ErrInvalidBookID, id)
			}
		})
	}
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, "42", NewTurn(RoleUser, fmt.Sprint(i))))
		}(i)
	}
	wg.Wait()

	got, err := s.History(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Append(ctx, "42", NewTurn(RoleUser, "remember me")))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := s2.History(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:remember me"}, contents(got))

	_, err = os.Stat(filepath.Join(dir, "session_42.json"))
	assert.NoError(t, err)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session_42.json"), []byte("{not json"), 0644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = s.History(context.Background(), "42")
	assert.Error(t, err)
}

func TestToMessages(t *testing.T) {
	msgs := ToMessages([]Turn{
		NewTurn(RoleUser, "q"),
		NewTurn(RoleAssistant, "a"),
	})

	assert.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "q"},
		{Role: ai.RoleAssistant, Content: "a"},
	}, msgs)
}
