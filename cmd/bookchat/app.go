package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/liao/bookchat/internal/ai"
	"github.com/liao/bookchat/internal/answer"
	"github.com/liao/bookchat/internal/book"
	"github.com/liao/bookchat/internal/chat"
	"github.com/liao/bookchat/internal/config"
	"github.com/liao/bookchat/internal/intent"
	"github.com/liao/bookchat/internal/rag"
)

// app 所有客户端只构造一次，注入到各个入口
type app struct {
	history chat.Store
	answers *answer.Service
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

func newHistoryStore(cfg *config.Config) (chat.Store, func() error, error) {
	switch cfg.History.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.RedisPassword,
			DB:       cfg.History.RedisDB,
		})
		return chat.NewRedisStore(client, cfg.History.KeyPrefix), client.Close, nil
	default:
		s, err := chat.NewFileStore(cfg.History.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	history, closeHistory, err := newHistoryStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("create history store: %w", err)
	}
	a := &app{history: history, closers: []func() error{closeHistory}}

	aiClient, err := ai.NewClient(ctx, ai.Options{
		APIKey:            cfg.Gemini.APIKey,
		ChatModel:         cfg.Gemini.ChatModel,
		ClassifyModel:     cfg.Gemini.ClassifyModel,
		EmbedModel:        cfg.Gemini.EmbeddingModel,
		Temperature:       cfg.Gemini.Temperature,
		MaxOutputTokens:   cfg.Gemini.MaxOutputTokens,
		ClassifyMaxTokens: cfg.Gemini.ClassifyMaxTokens,
		RPMLimit:          cfg.Gemini.RPMLimit,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create AI client: %w", err)
	}
	slog.Info("AI client initialized", "model", cfg.Gemini.ChatModel, "classify_model", cfg.Gemini.ClassifyModel)

	embedder, err := rag.NewCachedEmbedder(aiClient, cfg.RAG.EmbedCacheSize)
	if err != nil {
		a.Close()
		return nil, err
	}
	scorer := rag.NewRerankerClient(cfg.Reranker.BaseURL, cfg.Reranker.Model, cfg.Reranker.APIKey, cfg.Reranker.Timeout)
	books := book.NewFileStore(cfg.Data.BooksDir, cfg.Data.OverviewFile)

	dispatcher := rag.NewBookDispatcher(books, embedder, scorer, rag.Options{
		TopK:             cfg.RAG.TopK,
		HybridTopK:       cfg.RAG.HybridTopK,
		RerankTopK:       cfg.RAG.RerankTopK,
		EmbedConcurrency: cfg.RAG.EmbedConcurrency,
	})
	classifier := intent.NewClassifier(aiClient)

	a.answers = answer.NewService(classifier, dispatcher, aiClient, books, history)
	slog.Info("pipeline ready",
		"history_backend", cfg.History.Backend,
		"books_dir", cfg.Data.BooksDir,
		"reranker", cfg.Reranker.BaseURL,
	)
	return a, nil
}
