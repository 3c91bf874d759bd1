package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/liao/bookchat/internal/book"
)

func labeled(label, body, source string) Document {
	return Document{Content: label + ": " + body, Source: source}
}

// CharacterDocuments 每个角色一条 "名字: 描述"
func CharacterDocuments(b *book.Book) []Document {
	var docs []Document
	for _, c := range b.Analysis.Characters {
		if c.CharacterName == "" || c.Description == "" {
			continue
		}
		docs = append(docs, labeled(c.CharacterName, c.Description, SourceCharacter))
	}
	return docs
}

// PlaceDocuments 每个地点一条 "地名: 描述"
func PlaceDocuments(b *book.Book) []Document {
	var docs []Document
	for _, l := range b.Analysis.Locations {
		if l.LocationName == "" || l.Description == "" {
			continue
		}
		docs = append(docs, labeled(l.LocationName, l.Description, SourcePlace))
	}
	return docs
}

// ChapterDocuments 章节摘要，保持书中顺序
func ChapterDocuments(b *book.Book) []Document {
	var docs []Document
	for _, c := range b.Analysis.Chapters {
		if c.ChapterName == "" || c.RawOutput == "" {
			continue
		}
		docs = append(docs, labeled(c.ChapterName, c.RawOutput, SourceChapter))
	}
	return docs
}

// PassageDocuments 原文片段，标签为 "Chapter {chunk_id+1}"
func PassageDocuments(s *book.Summary) []Document {
	var docs []Document
	for _, c := range s.Chunks {
		if c.ChunkText == "" {
			continue
		}
		docs = append(docs, labeled(book.ChapterLabel(c.ChunkID+1), c.ChunkText, SourcePassage))
	}
	return docs
}

// contentAnalysisDocuments 把概览里的内容分析拆成独立文档，便于单独检索某个字段
func contentAnalysisDocuments(a book.ContentAnalysis, source string) []Document {
	var docs []Document
	if len(a.Genres) > 0 {
		docs = append(docs, labeled("Genres", strings.Join(a.Genres, ", "), source))
	}
	if a.Tone != "" {
		docs = append(docs, labeled("Tone", a.Tone, source))
	}
	if len(a.Keywords) > 0 {
		docs = append(docs, labeled("Keywords", strings.Join(a.Keywords, ", "), source))
	}
	if a.TimePeriod != "" {
		docs = append(docs, labeled("Time Period", a.TimePeriod, source))
	}
	return docs
}

// AnalysisDocuments 内容分析字段 + 梗概 + 全部章节摘要
func AnalysisDocuments(b *book.Book) []Document {
	docs := contentAnalysisDocuments(b.Overview.ContentAnalysis, SourceAnalysis)
	if b.Overview.Synopsis != "" {
		docs = append(docs, labeled("Synopsis", b.Overview.Synopsis, SourceAnalysis))
	}
	for _, c := range b.Analysis.Chapters {
		if c.ChapterName == "" || c.RawOutput == "" {
			continue
		}
		docs = append(docs, labeled(c.ChapterName, c.RawOutput, SourceAnalysis))
	}
	return docs
}

// MarketingDocuments 梗概、关键数据、内容分析字段和每部可比作品
func MarketingDocuments(b *book.Book) []Document {
	var docs []Document
	ov := b.Overview
	if ov.Synopsis != "" {
		docs = append(docs, labeled("Synopsis", ov.Synopsis, SourceMarketing))
	}
	if len(ov.KeyData) > 0 {
		keys := make([]string, 0, len(ov.KeyData))
		for k := range ov.KeyData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = k + ": " + ov.KeyData[k]
		}
		docs = append(docs, labeled("Key Data", strings.Join(lines, "\n"), SourceMarketing))
	}
	docs = append(docs, contentAnalysisDocuments(ov.ContentAnalysis, SourceMarketing)...)
	for _, c := range ov.Comparison {
		title := c.Title
		if title == "" {
			title = "Unknown Title"
		}
		author := c.Author
		if author == "" {
			author = "Unknown Author"
		}
		docs = append(docs, labeled("Comparison: "+title, fmt.Sprintf("%s by %s", title, author), SourceMarketing))
	}
	return docs
}
