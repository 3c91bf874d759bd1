package rag

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank_ReordersByScoreAndTruncates(t *testing.T) {
	candidates := []Document{{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"}}
	scorer := &fixedScorer{scores: map[string]float32{"a": 0.1, "b": 0.9, "c": 0.5, "d": 0.7}}

	got, err := Rerank(context.Background(), scorer, "q", candidates, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "d", "c"}, got.Texts())
}

func TestRerank_NeverReturnsUnknownDocuments(t *testing.T) {
	candidates := []Document{{Content: "a"}, {Content: "b"}}
	scorer := &fixedScorer{scores: map[string]float32{"a": 0.2, "b": 0.3, "zzz": 99}}

	got, err := Rerank(context.Background(), scorer, "q", candidates, 5)
	require.NoError(t, err)

	require.Len(t, got, 2)
	for _, d := range got {
		assert.Contains(t, candidates, d)
	}
}

func TestRerank_EmptyCandidates(t *testing.T) {
	scorer := &fixedScorer{}
	got, err := Rerank(context.Background(), scorer, "q", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, scorer.inputs)
}

func TestRerank_ScorerError(t *testing.T) {
	scorer := &fixedScorer{err: errors.New("model unavailable")}
	_, err := Rerank(context.Background(), scorer, "q", []Document{{Content: "a"}}, 3)
	assert.Error(t, err)
}

type shortScorer struct{}

func (shortScorer) Score(ctx context.Context, query string, texts []string) ([]float32, error) {
	return []float32{1}, nil
}

func TestRerank_ScoreCountMismatch(t *testing.T) {
	_, err := Rerank(context.Background(), shortScorer{}, "q", []Document{{Content: "a"}, {Content: "b"}}, 3)
	assert.Error(t, err)
}

func TestRerankerClient_Score(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "who hid the map?", req.Query)
		assert.Equal(t, []string{"one", "two", "three"}, req.Candidates)
		assert.Equal(t, "bge-reranker-base", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rerankResponse{
			Results: []rerankResult{{Index: 2, Score: 0.9}, {Index: 0, Score: 0.4}},
			Model:   "bge-reranker-base",
		})
	}))
	defer server.Close()

	c := NewRerankerClient(server.URL+"/", "bge-reranker-base", "secret", 5*time.Second)
	scores, err := c.Score(context.Background(), "who hid the map?", []string{"one", "two", "three"})
	require.NoError(t, err)

	require.Len(t, scores, 3)
	assert.Equal(t, float32(0.4), scores[0])
	assert.True(t, math.IsInf(float64(scores[1]), -1))
	assert.Equal(t, float32(0.9), scores[2])
}

func TestRerankerClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
	}))
	defer server.Close()

	c := NewRerankerClient(server.URL, "m", "", 5*time.Second)
	_, err := c.Score(context.Background(), "q", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestRerankerClient_InvalidIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Results: []rerankResult{{Index: 5, Score: 1}}})
	}))
	defer server.Close()

	c := NewRerankerClient(server.URL, "m", "", 5*time.Second)
	_, err := c.Score(context.Background(), "q", []string{"a"})
	assert.Error(t, err)
}

func TestRerankerClient_EmptyInputSkipsCall(t *testing.T) {
	c := NewRerankerClient("http://127.0.0.1:1", "m", "", time.Second)
	scores, err := c.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
