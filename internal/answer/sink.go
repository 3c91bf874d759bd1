package answer

import (
	"fmt"
	"io"
	"strings"
)

// Collector 把片段攒成完整回答，给不支持流式的前端用（QQ 私聊）
type Collector struct {
	b      strings.Builder
	done   bool
	notice string
}

func (c *Collector) Fragment(text string) error {
	c.b.WriteString(text)
	return nil
}

func (c *Collector) Done() error {
	c.done = true
	return nil
}

func (c *Collector) Error(notice string) error {
	c.notice = notice
	return nil
}

func (c *Collector) Text() string { return c.b.String() }

func (c *Collector) Completed() bool { return c.done }

// Notice 失败提示，没有失败时为空
func (c *Collector) Notice() string { return c.notice }

// WriterSink 直接写到终端
type WriterSink struct {
	W io.Writer
}

func (w WriterSink) Fragment(text string) error {
	_, err := io.WriteString(w.W, text)
	return err
}

func (w WriterSink) Done() error {
	_, err := io.WriteString(w.W, "\n")
	return err
}

func (w WriterSink) Error(notice string) error {
	_, err := fmt.Fprintln(w.W, notice)
	return err
}
