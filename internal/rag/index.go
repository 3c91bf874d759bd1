package rag

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

// Index 单次请求内的临时向量索引，基于 chromem 内存库，用完即弃
type Index struct {
	collection *chromem.Collection
	docs       []Document
}

// NewIndex 嵌入全部文档并建立索引。文档为空时返回空索引。
func NewIndex(ctx context.Context, embedder Embedder, docs []Document, concurrency int) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(uuid.NewString(), nil, embedder.Embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	if len(docs) == 0 {
		return &Index{collection: col}, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := EmbedAll(ctx, embedder, texts, concurrency)
	if err != nil {
		return nil, err
	}

	cdocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		cdocs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   d.Content,
			Embedding: vecs[i],
			Metadata:  map[string]string{"source": d.Source},
		}
	}
	if err := col.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	return &Index{collection: col, docs: docs}, nil
}

// Query 返回与 text 最相似的至多 topK 个文档，相似度降序
func (ix *Index) Query(ctx context.Context, text string, topK int) (ContextSet, error) {
	count := ix.collection.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}

	k := topK
	if k > count {
		k = count
	}

	res, err := ix.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	out := make(ContextSet, 0, len(res))
	for _, r := range res {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 || i >= len(ix.docs) {
			return nil, fmt.Errorf("unknown document id %q", r.ID)
		}
		out = append(out, ix.docs[i])
	}
	return out, nil
}

// Count 返回文档数量
func (ix *Index) Count() int {
	return ix.collection.Count()
}
