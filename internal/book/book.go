package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound 书籍或其内容集合不存在
var ErrNotFound = errors.New("book not found")

// Book 单本书的分析结果（由摄取流程生成，这里只读）
type Book struct {
	ID       string   `json:"id"`
	Overview Overview `json:"overview"`
	Analysis Analysis `json:"analysis"`
}

type Overview struct {
	Synopsis        string            `json:"synopsis"`
	KeyData         map[string]string `json:"key_data"`
	ContentAnalysis ContentAnalysis   `json:"contentAnalysis"`
	Comparison      []Comparison      `json:"comparison"`
}

type ContentAnalysis struct {
	Genres     []string `json:"genres"`
	Tone       string   `json:"tone"`
	Keywords   []string `json:"keywords"`
	TimePeriod string   `json:"timePeriod"`
}

// Comparison 可比较的同类作品
type Comparison struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Note   string `json:"note"`
}

type Analysis struct {
	Chapters   []Chapter   `json:"chapters"`
	Characters []Character `json:"characters"`
	Locations  []Location  `json:"locations"`
}

// Chapter 章节摘要，ChapterName 形如 "Chapter 3"
type Chapter struct {
	ChapterName string `json:"chapter_name"`
	RawOutput   string `json:"raw_output"`
}

type Character struct {
	CharacterName string `json:"character_name"`
	Description   string `json:"description"`
}

type Location struct {
	LocationName string `json:"location_name"`
	Description  string `json:"description"`
}

// Summary 书籍列表中的一项，包含原文切片
type Summary struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Chunks []Chunk `json:"chunks"`
}

// Chunk 原文片段，ChunkID 从 0 开始
type Chunk struct {
	ChunkID   int    `json:"chunk_id"`
	ChunkText string `json:"chunk_text"`
}

// Store 书籍内容集合的只读来源
type Store interface {
	// Book 返回书籍详情，不存在时返回 ErrNotFound
	Book(ctx context.Context, id string) (*Book, error)
	// Summary 返回书籍列表项（标题、作者、原文切片），不存在时返回 ErrNotFound
	Summary(ctx context.Context, id string) (*Summary, error)
}

// Title 返回书籍展示标题，缺失时退回书籍 ID
func Title(ctx context.Context, s Store, id string) string {
	sum, err := s.Summary(ctx, id)
	if err != nil || strings.TrimSpace(sum.Title) == "" {
		return id
	}
	return sum.Title
}

// ChapterLabel 章节序号对应的标签
func ChapterLabel(n int) string {
	return fmt.Sprintf("Chapter %d", n)
}
