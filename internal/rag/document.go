package rag

// 文档来源标签
const (
	SourceCharacter = "character"
	SourcePlace     = "place"
	SourceAnalysis  = "analysis"
	SourceMarketing = "marketing"
	SourceChapter   = "chapter_summary"
	SourcePassage   = "passage"
)

// Document 检索证据的最小单元，创建后不再修改
type Document struct {
	Content string
	Source  string
}

// ContextSet 按相关度降序排列的检索结果
type ContextSet []Document

// Texts 返回所有文档正文，顺序不变
func (cs ContextSet) Texts() []string {
	out := make([]string, len(cs))
	for i, d := range cs {
		out[i] = d.Content
	}
	return out
}
