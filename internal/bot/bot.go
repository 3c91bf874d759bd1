package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	zero "github.com/wdvxdr1123/ZeroBot"
	"github.com/wdvxdr1123/ZeroBot/driver"
	"github.com/wdvxdr1123/ZeroBot/message"

	"github.com/liao/bookchat/internal/answer"
	"github.com/liao/bookchat/internal/chat"
	"github.com/liao/bookchat/internal/config"
)

const helpText = "/book <id> 选择书籍\n/history 查看对话记录\n/clear 清空对话记录\n其他文字会作为问题发送"

// 单条 QQ 消息的长度上限（按字符）
const maxMessageRunes = 1500

type Answerer interface {
	Answer(ctx context.Context, bookID, question string, sink answer.Sink) (answer.Result, error)
}

// Bot QQ 私聊入口。每个用户单独记住当前选中的书。
type Bot struct {
	cfg     config.BotConfig
	answers Answerer
	history chat.Store
	cancel  context.CancelFunc

	mu       sync.Mutex
	selected map[int64]string
}

func New(cfg config.BotConfig, answers Answerer, history chat.Store) *Bot {
	return &Bot{
		cfg:      cfg,
		answers:  answers,
		history:  history,
		selected: make(map[int64]string),
	}
}

func (b *Bot) Run(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)

	ws := driver.NewWebSocketClient(b.cfg.WSURL, b.cfg.AccessToken)

	zero.OnMessage(zero.OnlyPrivate).Handle(func(zctx *zero.Ctx) {
		text := strings.TrimSpace(zctx.ExtractPlainText())
		if text == "" {
			return // 跳过纯表情/图片等非文本消息
		}
		slog.Info("received message", "from", zctx.Event.UserID, "text", text)
		for _, part := range b.Reply(ctx, zctx.Event.UserID, text) {
			zctx.Send(message.Text(part))
		}
	})

	slog.Info("bot starting", "ws_url", b.cfg.WSURL)

	var superUsers []int64
	if b.cfg.OwnerQQ != 0 {
		superUsers = []int64{b.cfg.OwnerQQ}
	}
	zero.RunAndBlock(&zero.Config{
		NickName:   []string{b.cfg.NickName},
		SuperUsers: superUsers,
		Driver:     []zero.Driver{ws},
	}, nil)
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Reply 处理一条私聊文本，返回要依次发送的消息
func (b *Bot) Reply(ctx context.Context, userID int64, text string) []string {
	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		return []string{helpText}
	case "/book":
		if arg == "" {
			if id := b.book(userID); id != "" {
				return []string{fmt.Sprintf("当前书籍：%s", id)}
			}
			return []string{"用法：/book <id>"}
		}
		b.mu.Lock()
		b.selected[userID] = arg
		b.mu.Unlock()
		return []string{fmt.Sprintf("已切换到书籍 %s", arg)}
	case "/status":
		if userID == b.cfg.OwnerQQ {
			return []string{"bookchat running"}
		}
	}

	bookID := b.book(userID)
	if bookID == "" {
		return []string{"请先用 /book <id> 选择一本书"}
	}

	switch cmd {
	case "/history":
		return b.showHistory(ctx, bookID)
	case "/clear":
		if err := b.history.Clear(ctx, bookID); err != nil {
			slog.Error("clear history failed", "book_id", bookID, "error", err)
			return []string{answer.ErrorNotice}
		}
		return []string{"对话记录已清空"}
	}

	c := &answer.Collector{}
	if _, err := b.answers.Answer(ctx, bookID, text, c); err != nil {
		// 已在 answer 里记录日志
		return []string{answer.ErrorNotice}
	}
	if !c.Completed() {
		return nil
	}
	return splitMessage(c.Text(), maxMessageRunes)
}

func (b *Bot) book(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected[userID]
}

func (b *Bot) showHistory(ctx context.Context, bookID string) []string {
	turns, err := b.history.History(ctx, bookID)
	if err != nil {
		slog.Error("load history failed", "book_id", bookID, "error", err)
		return []string{answer.ErrorNotice}
	}
	if len(turns) == 0 {
		return []string{"暂无对话记录"}
	}

	var sb strings.Builder
	for _, t := range turns {
		prefix := "Q"
		if t.Role == chat.RoleAssistant {
			prefix = "A"
		}
		fmt.Fprintf(&sb, "%s: %s\n", prefix, t.Content)
	}
	return splitMessage(strings.TrimRight(sb.String(), "\n"), maxMessageRunes)
}

// splitMessage 按段落切分过长文本，单段超长时硬切
func splitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(text, "\n") {
		r := []rune(para)
		for len(r) > limit {
			flush()
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		para = string(r)
		if len([]rune(cur.String()))+len(r)+1 > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(para)
	}
	flush()
	return parts
}
