package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/liao/bookchat/internal/ai"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrInvalidBookID = errors.New("invalid book id")

// Turn 一条对话记录，按时间顺序追加，不修改不重排
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" / "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTurn(role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Store 按书籍隔离的只追加对话历史
type Store interface {
	Append(ctx context.Context, bookID string, turn Turn) error
	History(ctx context.Context, bookID string) ([]Turn, error)
	Clear(ctx context.Context, bookID string) error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// ToMessages 转成 prompt 消息，顺序不变
func ToMessages(turns []Turn) []ai.Message {
	msgs := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		role := ai.RoleUser
		if t.Role == RoleAssistant {
			role = ai.RoleAssistant
		}
		msgs = append(msgs, ai.Message{Role: role, Content: t.Content})
	}
	return msgs
}

func validBookID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidBookID
	}
	return nil
}
