package server

import (
	"io"
	"net/http"
	"strings"
)

// sseSink 把回答片段写成 SSE 事件。
// 片段内的换行拆成多条 data 行，客户端按规范用 \n 拼回。
type sseSink struct {
	w       io.Writer
	flusher http.Flusher
}

func (s *sseSink) send(event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteString("\n")
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Fragment(text string) error {
	return s.send("", text)
}

func (s *sseSink) Done() error {
	return s.send("done", "[DONE]")
}

func (s *sseSink) Error(notice string) error {
	return s.send("", notice)
}
