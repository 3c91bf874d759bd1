package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/liao/bookchat/internal/book"
	"github.com/liao/bookchat/internal/intent"
)

// Query 一次检索请求
type Query struct {
	BookID string
	Text   string
	Intent intent.Intent
}

// Strategy 针对某类意图的检索策略
type Strategy interface {
	Retrieve(ctx context.Context, q Query) (ContextSet, error)
}

// CollectionStrategy 单集合检索：把一个内容集合建成临时索引，用原始问题查询 topK。
// 集合为空或书籍不存在时返回空结果而不是错误。
type CollectionStrategy struct {
	name        string
	store       book.Store
	embedder    Embedder
	build       func(*book.Book) []Document
	topK        int
	concurrency int
}

func newCollectionStrategy(name string, store book.Store, embedder Embedder, build func(*book.Book) []Document, opts Options) *CollectionStrategy {
	return &CollectionStrategy{
		name:        name,
		store:       store,
		embedder:    embedder,
		build:       build,
		topK:        opts.TopK,
		concurrency: opts.EmbedConcurrency,
	}
}

func NewCharacterStrategy(store book.Store, embedder Embedder, opts Options) *CollectionStrategy {
	return newCollectionStrategy("character", store, embedder, CharacterDocuments, opts)
}

func NewPlacesStrategy(store book.Store, embedder Embedder, opts Options) *CollectionStrategy {
	return newCollectionStrategy("places", store, embedder, PlaceDocuments, opts)
}

func NewAnalysisStrategy(store book.Store, embedder Embedder, opts Options) *CollectionStrategy {
	return newCollectionStrategy("analysis", store, embedder, AnalysisDocuments, opts)
}

func NewMarketingStrategy(store book.Store, embedder Embedder, opts Options) *CollectionStrategy {
	return newCollectionStrategy("marketing", store, embedder, MarketingDocuments, opts)
}

func (s *CollectionStrategy) Retrieve(ctx context.Context, q Query) (ContextSet, error) {
	b, err := s.store.Book(ctx, q.BookID)
	if errors.Is(err, book.ErrNotFound) {
		slog.Warn("collection missing, no context", "strategy", s.name, "book_id", q.BookID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s collection: %w", s.name, err)
	}

	docs := s.build(b)
	if len(docs) == 0 {
		slog.Warn("collection empty, no context", "strategy", s.name, "book_id", q.BookID)
		return nil, nil
	}

	ix, err := NewIndex(ctx, s.embedder, docs, s.concurrency)
	if err != nil {
		return nil, fmt.Errorf("index %s collection: %w", s.name, err)
	}
	return ix.Query(ctx, q.Text, s.topK)
}
