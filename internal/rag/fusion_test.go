package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-6)
	assert.Equal(t, float32(0), Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestFuse_OrdersByCosineAndKeepsTopK(t *testing.T) {
	query := []float32{1, 0}
	docs := []Document{
		{Content: "a", Source: SourceChapter},
		{Content: "b", Source: SourcePassage},
		{Content: "c", Source: SourceChapter},
		{Content: "d", Source: SourcePassage},
	}
	vecs := [][]float32{
		{0, 1},   // 0
		{1, 0.1}, // ~0.995
		{1, 1},   // ~0.707
		{1, 0},   // 1
	}

	got := Fuse(query, docs, vecs, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].Document.Content)
	assert.Equal(t, "b", got[1].Document.Content)
	assert.Equal(t, "c", got[2].Document.Content)
	assert.Equal(t, 3, got[0].Index)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestFuse_TiesKeepPoolOrder(t *testing.T) {
	docs := make([]Document, 6)
	vecs := make([][]float32, 6)
	for i := range docs {
		docs[i] = Document{Content: fmt.Sprintf("doc-%d", i)}
		vecs[i] = []float32{1, 1}
	}

	got := Fuse([]float32{1, 1}, docs, vecs, 4)

	require.Len(t, got, 4)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
	}
}

func TestFuse_TopKLargerThanPool(t *testing.T) {
	got := Fuse([]float32{1}, []Document{{Content: "x"}}, [][]float32{{1}}, 10)
	assert.Len(t, got, 1)
}
