package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/liao/bookchat/internal/book"
)

// hashEmbedder 把每个单词哈希到固定维度，外加一个常量维，保证非零向量
type hashEmbedder struct {
	calls atomic.Int64
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	v := make([]float32, 17)
	v[16] = 0.1
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,:?!")))
		v[h.Sum32()%16] += 1
	}
	return v, nil
}

// mapEmbedder 按文本返回预设向量，未知文本返回 fallback
type mapEmbedder struct {
	mu       sync.Mutex
	vecs     map[string][]float32
	fallback []float32
	seen     []string
}

func (e *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, text)
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	if e.fallback == nil {
		return nil, errors.New("no vector for " + text)
	}
	return e.fallback, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

// fixedScorer 按文本给出预设分数
type fixedScorer struct {
	scores map[string]float32
	err    error
	inputs []string
}

func (s *fixedScorer) Score(ctx context.Context, query string, texts []string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, texts...)
	out := make([]float32, len(texts))
	for i, t := range texts {
		out[i] = s.scores[t]
	}
	return out, nil
}

func testBook() *book.Book {
	return &book.Book{
		ID: "42",
		Overview: book.Overview{
			Synopsis: "A lighthouse keeper finds a map.",
			KeyData:  map[string]string{"Word count": "80000", "Audience": "Adult"},
			ContentAnalysis: book.ContentAnalysis{
				Genres:     []string{"Mystery", "Adventure"},
				Tone:       "Brooding",
				Keywords:   []string{"sea", "map"},
				TimePeriod: "1890s",
			},
			Comparison: []book.Comparison{
				{Title: "Treasure Island", Author: "R. L. Stevenson"},
				{Title: "", Author: ""},
			},
		},
		Analysis: book.Analysis{
			Chapters: []book.Chapter{
				{ChapterName: "Chapter 1", RawOutput: "The storm arrives."},
				{ChapterName: "Chapter 2", RawOutput: "Mara finds the map."},
			},
			Characters: []book.Character{
				{CharacterName: "Mara", Description: "The lighthouse keeper."},
				{CharacterName: "Tobias", Description: "A smuggler."},
				{CharacterName: "Ilse", Description: "Mara's sister."},
				{CharacterName: "", Description: "nameless"},
			},
			Locations: []book.Location{
				{LocationName: "Gull Rock", Description: "A lighthouse island."},
				{LocationName: "Harbor", Description: "A fishing town."},
			},
		},
	}
}

func testStore() *book.MemoryStore {
	s := book.NewMemoryStore()
	s.PutBook(testBook())
	s.PutSummary(&book.Summary{
		ID:    "42",
		Title: "The Keeper",
		Chunks: []book.Chunk{
			{ChunkID: 0, ChunkText: "Rain hammered the lamp room."},
			{ChunkID: 1, ChunkText: "The map was folded in oilcloth."},
		},
	})
	return s
}
