package rag

import (
	"math"
	"slices"
)

// ScoredCandidate 融合阶段的候选文档，Index 为其在候选池中的原始位置
type ScoredCandidate struct {
	Document Document
	Score    float32
	Index    int
}

// Cosine 余弦相似度，任一向量为零向量时返回 0
func Cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Fuse 对来自不同集合的候选池按与 query 的余弦相似度打分，
// 稳定排序后取前 topK（同分时保持池内原顺序）。
// docs 与 vecs 一一对应。
func Fuse(query []float32, docs []Document, vecs [][]float32, topK int) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(docs))
	for i, d := range docs {
		scored[i] = ScoredCandidate{Document: d, Score: Cosine(query, vecs[i]), Index: i}
	}
	slices.SortStableFunc(scored, byScoreDesc)
	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func byScoreDesc(a, b ScoredCandidate) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	default:
		return 0
	}
}
