package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Scorer 成对打分：对每个 (query, text) 给出相关度，结果与 texts 顺序一致
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float32, error)
}

// Rerank 用 Scorer 对候选重新打分，按新分数降序取前 topM。
// 只会返回 candidates 中的文档。
func Rerank(ctx context.Context, scorer Scorer, query string, candidates []Document, topM int) (ContextSet, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}
	scores, err := scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank: got %d scores for %d candidates", len(scores), len(candidates))
	}

	ranked := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = ScoredCandidate{Document: c, Score: scores[i], Index: i}
	}
	slices.SortStableFunc(ranked, byScoreDesc)
	if topM >= 0 && len(ranked) > topM {
		ranked = ranked[:topM]
	}

	out := make(ContextSet, len(ranked))
	for i, r := range ranked {
		out[i] = r.Document
	}
	return out, nil
}

type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Model      string   `json:"model,omitempty"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
	Model   string         `json:"model"`
}

// RerankerClient 通过 HTTP 调用 cross-encoder 服务（POST /v1/rerank）
type RerankerClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func NewRerankerClient(baseURL, model, apiKey string, timeout time.Duration) *RerankerClient {
	return &RerankerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Score 服务端未返回分数的文本记为负无穷
func (c *RerankerClient) Score(ctx context.Context, query string, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return []float32{}, nil
	}
	start := time.Now()

	payload, err := json.Marshal(rerankRequest{Query: query, Candidates: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call rerank endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float32, len(texts))
	for i := range scores {
		scores[i] = float32(math.Inf(-1))
	}
	for _, r := range rr.Results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("invalid result index %d for %d candidates", r.Index, len(texts))
		}
		scores[r.Index] = r.Score
	}

	slog.Debug("rerank scored", "model", rr.Model, "candidates", len(texts), "elapsed_ms", time.Since(start).Milliseconds())
	return scores, nil
}
