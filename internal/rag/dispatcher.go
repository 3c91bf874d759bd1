package rag

import (
	"context"
	"log/slog"

	"github.com/liao/bookchat/internal/book"
	"github.com/liao/bookchat/internal/intent"
)

// Options 检索参数
type Options struct {
	TopK             int // 单集合检索返回数
	HybridTopK       int // 混合检索召回数
	RerankTopK       int // 重排后保留数
	EmbedConcurrency int
}

func DefaultOptions() Options {
	return Options{TopK: 5, HybridTopK: 4, RerankTopK: 3, EmbedConcurrency: 4}
}

// Dispatcher 意图 -> 策略的查表路由，本身不含检索逻辑
type Dispatcher struct {
	routes map[intent.Kind]Strategy
}

// NewDispatcher 用给定路由表构建；未出现在表中的意图返回空结果
func NewDispatcher(routes map[intent.Kind]Strategy) *Dispatcher {
	return &Dispatcher{routes: routes}
}

// NewBookDispatcher 构建标准路由表：角色、地点、情节、分析、营销
func NewBookDispatcher(store book.Store, embedder Embedder, scorer Scorer, opts Options) *Dispatcher {
	plot := NewPlotStrategy(store, embedder, scorer, opts)
	return NewDispatcher(map[intent.Kind]Strategy{
		intent.KindCharacter:      NewCharacterStrategy(store, embedder, opts),
		intent.KindPlaces:         NewPlacesStrategy(store, embedder, opts),
		intent.KindPlot:           plot,
		intent.KindPlotSemantic:   plot,
		intent.KindPlotByChapter:  plot,
		intent.KindPlotByPosition: plot,
		intent.KindAnalysis:       NewAnalysisStrategy(store, embedder, opts),
		intent.KindMarketing:      NewMarketingStrategy(store, embedder, opts),
	})
}

// Retrieve 解析分类标签并交给对应策略。OUTSIDE、OTHER 和无法识别的标签返回空结果。
func (d *Dispatcher) Retrieve(ctx context.Context, question, bookID, label string) (ContextSet, error) {
	in := intent.Parse(label)
	s, ok := d.routes[in.Kind]
	if !ok {
		slog.Debug("no retrieval route", "label", label, "kind", in.Kind)
		return nil, nil
	}
	return s.Retrieve(ctx, Query{BookID: bookID, Text: question, Intent: in})
}
