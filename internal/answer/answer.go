package answer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/liao/bookchat/internal/ai"
	"github.com/liao/bookchat/internal/book"
	"github.com/liao/bookchat/internal/chat"
	"github.com/liao/bookchat/internal/rag"
)

// ErrorNotice 失败时发给调用方的唯一提示，不暴露内部错误
const ErrorNotice = "An error occurred."

type State int

const (
	StateStarted State = iota
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StateStreaming:
		return "STREAMING"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sink 接收流式输出。任何方法返回错误都视为调用方已断开。
type Sink interface {
	Fragment(text string) error
	Done() error
	Error(notice string) error
}

type Classifier interface {
	Classify(ctx context.Context, question string) (string, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, question, bookID, label string) (rag.ContextSet, error)
}

type Streamer interface {
	Stream(ctx context.Context, p ai.Prompt) iter.Seq2[string, error]
}

// Result 一轮问答的终态和助手文本（可能是部分文本）
type Result struct {
	State State
	Text  string
}

type Service struct {
	classifier Classifier
	retriever  Retriever
	llm        Streamer
	books      book.Store
	history    chat.Store
}

func NewService(classifier Classifier, retriever Retriever, llm Streamer, books book.Store, history chat.Store) *Service {
	return &Service{
		classifier: classifier,
		retriever:  retriever,
		llm:        llm,
		books:      books,
		history:    history,
	}
}

// Answer 处理一个问题：读历史、记录用户消息、分类、检索、组装 prompt、流式生成。
// 无论结果如何，助手消息都会以已生成的部分写入历史。
// 返回的 error 只在 FAILED 时非 nil。
func (s *Service) Answer(ctx context.Context, bookID, question string, sink Sink) (Result, error) {
	log := slog.With("book_id", bookID)

	past, err := s.history.History(ctx, bookID)
	if err != nil {
		log.Error("load history failed", "error", err)
		_ = sink.Error(ErrorNotice)
		return Result{State: StateFailed}, fmt.Errorf("load history: %w", err)
	}
	if err := s.history.Append(ctx, bookID, chat.NewTurn(chat.RoleUser, question)); err != nil {
		log.Error("append user turn failed", "error", err)
		_ = sink.Error(ErrorNotice)
		return Result{State: StateFailed}, fmt.Errorf("append user turn: %w", err)
	}
	log.Info("turn started", "question", question)

	t := &turn{state: StateStarted}
	err = s.generate(ctx, bookID, question, past, sink, t)
	switch {
	case err == nil:
		t.state = StateCompleted
	case errors.Is(err, errDisconnected) || ctx.Err() != nil:
		t.state = StateCancelled
		err = nil
	default:
		t.state = StateFailed
	}

	// 取消后仍要落盘
	text := t.buf.String()
	if aerr := s.history.Append(context.WithoutCancel(ctx), bookID, chat.NewTurn(chat.RoleAssistant, text)); aerr != nil {
		log.Error("append assistant turn failed", "error", aerr)
		if t.state == StateCompleted {
			t.state = StateFailed
			err = fmt.Errorf("append assistant turn: %w", aerr)
		}
	}

	switch t.state {
	case StateCompleted:
		if derr := sink.Done(); derr != nil {
			log.Debug("done marker not delivered", "error", derr)
		}
		log.Info("turn completed", "chars", len(text))
	case StateCancelled:
		log.Info("turn cancelled", "chars", len(text))
	case StateFailed:
		log.Error("turn failed", "chars", len(text), "error", err)
		_ = sink.Error(ErrorNotice)
	}
	return Result{State: t.state, Text: text}, err
}

var errDisconnected = errors.New("sink disconnected")

type turn struct {
	state State
	buf   strings.Builder
}

func (s *Service) generate(ctx context.Context, bookID, question string, past []chat.Turn, sink Sink, t *turn) error {
	label, err := s.classifier.Classify(ctx, question)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	slog.Debug("question classified", "book_id", bookID, "intent", label)

	docs, err := s.retriever.Retrieve(ctx, question, bookID, label)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	slog.Debug("context retrieved", "book_id", bookID, "intent", label, "documents", len(docs))

	title := book.Title(ctx, s.books, bookID)
	prompt := ai.BuildPrompt(question, docs.Texts(), title, chat.ToMessages(past))

	for frag, err := range s.llm.Stream(ctx, prompt) {
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.state = StateStreaming
		t.buf.WriteString(frag)
		if err := sink.Fragment(frag); err != nil {
			return fmt.Errorf("%w: %v", errDisconnected, err)
		}
	}
	return ctx.Err()
}
