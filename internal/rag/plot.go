package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/liao/bookchat/internal/book"
	"github.com/liao/bookchat/internal/intent"
)

// PlotStrategy 情节类问题，按子意图分三支：按章节、按位置、语义（混合检索 + 重排）
type PlotStrategy struct {
	store       book.Store
	embedder    Embedder
	scorer      Scorer
	hybridTopK  int
	rerankTopK  int
	concurrency int
}

func NewPlotStrategy(store book.Store, embedder Embedder, scorer Scorer, opts Options) *PlotStrategy {
	return &PlotStrategy{
		store:       store,
		embedder:    embedder,
		scorer:      scorer,
		hybridTopK:  opts.HybridTopK,
		rerankTopK:  opts.RerankTopK,
		concurrency: opts.EmbedConcurrency,
	}
}

func (s *PlotStrategy) Retrieve(ctx context.Context, q Query) (ContextSet, error) {
	switch q.Intent.Kind {
	case intent.KindPlotByChapter:
		return s.byChapter(ctx, q.BookID, q.Intent.Chapter)
	case intent.KindPlotByPosition:
		return s.byPosition(ctx, q.BookID, q.Intent.Position)
	case intent.KindPlotSemantic:
		return s.semantic(ctx, q.BookID, q.Text)
	default:
		slog.Debug("unresolved plot intent, no context", "label", q.Intent.Label)
		return nil, nil
	}
}

func (s *PlotStrategy) chapters(ctx context.Context, bookID string) ([]book.Chapter, error) {
	b, err := s.store.Book(ctx, bookID)
	if errors.Is(err, book.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chapter summaries: %w", err)
	}
	return b.Analysis.Chapters, nil
}

// byChapter 精确查找 "Chapter n" 的摘要，不做相似度检索
func (s *PlotStrategy) byChapter(ctx context.Context, bookID string, n int) (ContextSet, error) {
	if n <= 0 {
		return nil, nil
	}
	chapters, err := s.chapters(ctx, bookID)
	if err != nil {
		return nil, err
	}
	label := book.ChapterLabel(n)
	for _, c := range chapters {
		if c.ChapterName == label && c.RawOutput != "" {
			return ContextSet{labeled(label, c.RawOutput, SourceChapter)}, nil
		}
	}
	return nil, nil
}

func (s *PlotStrategy) byPosition(ctx context.Context, bookID string, pos intent.Position) (ContextSet, error) {
	b, err := s.store.Book(ctx, bookID)
	if errors.Is(err, book.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chapter summaries: %w", err)
	}
	return SliceByPosition(ChapterDocuments(b), pos), nil
}

// SliceByPosition 在有序章节摘要上按位置切片：开头取前两章，结尾取最后两章，
// 中间取 [n/2-1, n/2+1)，只有一章时返回该章。
func SliceByPosition(summaries []Document, pos intent.Position) ContextSet {
	n := len(summaries)
	if n == 0 {
		return nil
	}
	var sel []Document
	switch pos {
	case intent.PositionBeginning:
		sel = summaries[:min(2, n)]
	case intent.PositionEnd:
		sel = summaries[max(0, n-2):]
	case intent.PositionMiddle:
		if n == 1 {
			sel = summaries
		} else {
			sel = summaries[n/2-1 : n/2+1]
		}
	default:
		return nil
	}
	return append(ContextSet(nil), sel...)
}

// semantic 混合检索：章节摘要和原文片段无法共用一个索引，
// 手动嵌入后按余弦相似度融合，再交给重排器定序
func (s *PlotStrategy) semantic(ctx context.Context, bookID, question string) (ContextSet, error) {
	pool, err := s.candidatePool(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	candidates, err := s.hybrid(ctx, question, pool)
	if err != nil {
		return nil, err
	}

	reranked, err := Rerank(ctx, s.scorer, question, candidates, s.rerankTopK)
	if err != nil {
		return nil, err
	}
	slog.Debug("plot semantic retrieval", "book_id", bookID, "pool", len(pool), "candidates", len(candidates), "final", len(reranked))
	return reranked, nil
}

func (s *PlotStrategy) candidatePool(ctx context.Context, bookID string) ([]Document, error) {
	var pool []Document

	b, err := s.store.Book(ctx, bookID)
	switch {
	case errors.Is(err, book.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load chapter summaries: %w", err)
	default:
		pool = append(pool, ChapterDocuments(b)...)
	}

	sum, err := s.store.Summary(ctx, bookID)
	switch {
	case errors.Is(err, book.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load passages: %w", err)
	default:
		pool = append(pool, PassageDocuments(sum)...)
	}
	return pool, nil
}

// hybrid 嵌入问题一次、嵌入全部候选，按余弦相似度取前 hybridTopK
func (s *PlotStrategy) hybrid(ctx context.Context, question string, pool []Document) ([]Document, error) {
	qvec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	texts := make([]string, len(pool))
	for i, d := range pool {
		texts[i] = d.Content
	}
	vecs, err := EmbedAll(ctx, s.embedder, texts, s.concurrency)
	if err != nil {
		return nil, err
	}

	fused := Fuse(qvec, pool, vecs, s.hybridTopK)
	out := make([]Document, len(fused))
	for i, c := range fused {
		out[i] = c.Document
	}
	return out, nil
}
