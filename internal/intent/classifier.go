package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// CategoriesVersion 分类描述有改动时递增
const CategoriesVersion = "2"

type Category struct {
	Name        string
	Description string
}

var TopLevel = []Category{
	{"CHARACTER", "Questions about specific characters, their names, roles, relationships, personalities, or development arcs. Example: 'Is Alice the sister of Bob?' or 'Who is the main villain?'"},
	{"PLACES", "Questions about locations, settings, and environments in the story. Includes both real and fictional places. Example: 'Where does the story take place?' or 'What is the significance of the Whispering Woods?'"},
	{"PLOT", "Direct, factual questions about the main storyline or events that happen in the book. Typically limited in scope. Example: 'What happens in chapter 3?' or 'How does the book end?'"},
	{"ANALYSIS", "Interpretive or reflective questions that require broader understanding of the themes, symbols, structure, or deeper meanings in the book. Example: 'What is the author's message about grief?' or 'How does the protagonist's journey reflect existential themes?'"},
	{"MARKETING", "Questions related to how the book is pitched, its emotional tone, target audience, or genre fit. Example: 'Is this book good for fans of fantasy?' or 'What's the elevator pitch of the story?'"},
	{"OUTSIDE", "Questions requiring knowledge beyond the book's content, such as author biography, cultural context, comparisons with other works, or real-world facts. Example: 'Was this inspired by World War II?' or 'What books are similar to this one?'"},
	{"OTHER", "Questions that do not fit into the above categories or cannot be answered due to lack of context or relevance."},
}

var PlotLevel = []Category{
	{"PLOT_BY_CHAPTER_X", "The user explicitly refers to a specific chapter number 'X'. Replace X with the number."},
	{"PLOT_BY_POSITION_X", "The user refers to a part of the book. Replace X with 'beginning', 'middle', or 'end' according to the meaning of the query."},
	{"PLOT_SEMANTIC", "The question is about plot content without reference to structure or position."},
}

// Completer 单轮短文本补全能力
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Classifier struct {
	llm Completer
}

func NewClassifier(llm Completer) *Classifier {
	return &Classifier{llm: llm}
}

// Classify 返回问题的路由标签。顶层结果为 PLOT 时再用情节子类别分类一次。
// 不重试，也不纠正无法识别的标签。
func (c *Classifier) Classify(ctx context.Context, question string) (string, error) {
	label, err := c.classify(ctx, question, TopLevel)
	if err != nil {
		return "", err
	}
	if label == "PLOT" {
		label, err = c.classify(ctx, question, PlotLevel)
		if err != nil {
			return "", err
		}
	}
	slog.Debug("intent classified", "label", label, "version", CategoriesVersion)
	return label, nil
}

func (c *Classifier) classify(ctx context.Context, question string, categories []Category) (string, error) {
	out, err := c.llm.Complete(ctx, BuildClassifyPrompt(question, categories))
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// BuildClassifyPrompt 组装分类 prompt
func BuildClassifyPrompt(question string, categories []Category) string {
	var b strings.Builder
	b.WriteString("Classify the following user question into one of these categories:\n\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "%s: %s\n", cat.Name, cat.Description)
	}
	b.WriteString("\nRespond with only the category name.\n\n")
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
