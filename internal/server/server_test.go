package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liao/bookchat/internal/answer"
	"github.com/liao/bookchat/internal/chat"
)

type fakeAnswerer struct {
	frags  []string
	fail   bool
	bookID string
	asked  string
}

func (f *fakeAnswerer) Answer(ctx context.Context, bookID, question string, sink answer.Sink) (answer.Result, error) {
	f.bookID, f.asked = bookID, question
	for _, frag := range f.frags {
		if err := sink.Fragment(frag); err != nil {
			return answer.Result{State: answer.StateCancelled}, nil
		}
	}
	if f.fail {
		_ = sink.Error(answer.ErrorNotice)
		return answer.Result{State: answer.StateFailed}, errors.New("boom")
	}
	_ = sink.Done()
	return answer.Result{State: answer.StateCompleted}, nil
}

func newTestServer(t *testing.T, a Answerer) (*Server, chat.Store) {
	t.Helper()
	history, err := chat.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(":0", a, history), history
}

func streamURL(question, bookID string) string {
	q := url.Values{}
	q.Set("question", question)
	q.Set("book_id", bookID)
	return "/chat/stream?" + q.Encode()
}

func TestStream_Completed(t *testing.T) {
	a := &fakeAnswerer{frags: []string{"Hello", " world"}}
	s, _ := newTestServer(t, a)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL("Who is Mara?", "42"), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "data: Hello\n\ndata:  world\n\nevent: done\ndata: [DONE]\n\n", rec.Body.String())
	assert.Equal(t, "42", a.bookID)
	assert.Equal(t, "Who is Mara?", a.asked)
}

func TestStream_MultilineFragment(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnswerer{frags: []string{"line one\nline two"}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL("q", "42"), nil))

	assert.Equal(t, "data: line one\ndata: line two\n\nevent: done\ndata: [DONE]\n\n", rec.Body.String())
}

func TestStream_Failed(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnswerer{frags: []string{"partial"}, fail: true})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL("q", "42"), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: partial\n\ndata: An error occurred.\n\n", rec.Body.String())
}

func TestStream_MissingParams(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnswerer{})

	for _, target := range []string{"/chat/stream", "/chat/stream?question=hi", "/chat/stream?book_id=42"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHistory_GetAndDelete(t *testing.T) {
	s, history := newTestServer(t, &fakeAnswerer{})
	ctx := context.Background()
	require.NoError(t, history.Append(ctx, "42", chat.NewTurn(chat.RoleUser, "Who is Mara?")))
	require.NoError(t, history.Append(ctx, "42", chat.NewTurn(chat.RoleAssistant, "The keeper.")))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/history/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []historyItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Equal(t, []historyItem{
		{Role: "user", Content: "Who is Mara?"},
		{Role: "assistant", Content: "The keeper."},
	}, items)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat/history/42", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/history/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHistory_Empty(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnswerer{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/history/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
