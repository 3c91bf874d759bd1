package ai

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role
	Content string
}

// Prompt 发送给模型的有序消息列表，每轮重新构建，不持久化
type Prompt struct {
	Messages []Message
}

// InsufficientContext 检索结果为空时放进 prompt 的提示
const InsufficientContext = "No relevant excerpts from the book were found for this question. " +
	"If you don't have enough context to answer, say so instead of guessing."

// BuildPrompt 组装完整 prompt：历史对话原样回放，然后是一条带书名和检索上下文的
// system 消息，最后是用户的新问题。不做截断。
func BuildPrompt(question string, contextTexts []string, title string, history []Message) Prompt {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, history...)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant that answers questions about the book %s.\n", title)
	if len(contextTexts) == 0 {
		b.WriteString(InsufficientContext)
	} else {
		b.WriteString("Here is some helpful context considering the user's intent:\n\n")
		b.WriteString(strings.Join(contextTexts, "\n\n"))
	}
	msgs = append(msgs, Message{Role: RoleSystem, Content: b.String()})

	msgs = append(msgs, Message{Role: RoleUser, Content: question})
	return Prompt{Messages: msgs}
}
