package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aichat/core/chat"
	"github.com/leofalp/aichat/core/dispatch"
	"github.com/leofalp/aichat/providers/ai"
)

// fakeProvider answers with "answer to <last message>" unless err is set.
type fakeProvider struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *fakeProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	last := request.Messages[len(request.Messages)-1]
	return &ai.ChatResponse{Content: "answer to " + last.Content}, nil
}

func (p *fakeProvider) Validate() error                         { return nil }
func (p *fakeProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *fakeProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *fakeProvider) WithHttpClient(*http.Client) ai.Provider { return p }

type fixture struct {
	session  *chat.Session
	provider *fakeProvider
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := &fakeProvider{}
	d := dispatch.New().
		Register("openai", provider, "").
		Register("gemini", provider, "")
	session := chat.NewSession(d)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		session:  session,
		provider: provider,
		router:   NewRouter(NewHandler(session, d.Providers(), logger)),
	}
}

func (f *fixture) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) contents(t *testing.T) []string {
	t.Helper()
	messages, err := f.session.Messages(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestIndex_RendersPage(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Send(context.Background(), "gemini", "<b>hi</b>")
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="openai">openai</option>`)
	assert.Contains(t, body, `<option value="gemini" selected>gemini</option>`)
	assert.Contains(t, body, `<textarea name="message" rows="4" class="bf-textarea" required></textarea>`)
	assert.Contains(t, body, `<input type="hidden" name="edit_index" value="">`)
	assert.Contains(t, body, "&lt;b&gt;hi&lt;/b&gt;", "content must be escaped")
	assert.Contains(t, body, `<a href="/edit/1" class="bf-link">Edit</a>`)
	assert.NotContains(t, body, `href="/edit/0"`, "system row is not editable")
	assert.NotContains(t, body, `href="/edit/2"`, "assistant row is not editable")
}

func TestSend_AppendsAndRedirects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/send", url.Values{"message": {"2+2?"}, "provider": {"gemini"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	assert.Equal(t, []string{chat.DefaultSystemPrompt, "2+2?", "answer to 2+2?"}, f.contents(t))
	assert.Equal(t, "gemini", f.session.Provider())
}

func TestSend_DefaultsToCurrentProvider(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/send", url.Values{"message": {"hi"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "openai", f.session.Provider())
}

func TestSend_MissingMessage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/send", url.Values{"provider": {"openai"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.contents(t), 1)
	assert.Zero(t, f.provider.calls)
}

func TestSend_EditTruncatesAndResends(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/send", url.Values{"message": {"2+2?"}})
	f.do(http.MethodPost, "/send", url.Values{"message": {"and 5+5?"}})

	rec := f.do(http.MethodPost, "/send", url.Values{"message": {"3+3?"}, "edit_index": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{chat.DefaultSystemPrompt, "3+3?", "answer to 3+3?"}, f.contents(t))
}

func TestSend_InvalidEditIndexRedirectsWithoutChange(t *testing.T) {
	for _, index := range []string{"abc", "-1", "0", "2", "99"} {
		t.Run(index, func(t *testing.T) {
			f := newFixture(t)
			f.do(http.MethodPost, "/send", url.Values{"message": {"2+2?"}})
			before := f.contents(t)

			rec := f.do(http.MethodPost, "/send", url.Values{
				"message":    {"x"},
				"provider":   {"gemini"},
				"edit_index": {index},
			})
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
			assert.Equal(t, before, f.contents(t))
			assert.Equal(t, 1, f.provider.calls)
			assert.Equal(t, "openai", f.session.Provider())
		})
	}
}

func TestSend_TransportFault(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("upstream unavailable")

	rec := f.do(http.MethodPost, "/send", url.Values{"message": {"hi"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream unavailable")
	assert.Equal(t, []string{chat.DefaultSystemPrompt, "hi"}, f.contents(t), "user message is kept")
}

func TestSend_UnsupportedProviderStoresPlaceholder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/send", url.Values{"message": {"hi"}, "provider": {"foo"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{chat.DefaultSystemPrompt, "hi", "[Unsupported provider]"}, f.contents(t))
	assert.Zero(t, f.provider.calls)
}

func TestEditForm(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/send", url.Values{"message": {"2+2?"}})

	rec := f.do(http.MethodGet, "/edit/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `required>2&#43;2?</textarea>`)
	assert.Contains(t, body, `name="edit_index" value="1"`)
}

func TestEditForm_RedirectsOnBadIndex(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/send", url.Values{"message": {"2+2?"}})

	for _, index := range []string{"x", "-1", "0", "2", "42"} {
		rec := f.do(http.MethodGet, "/edit/"+index, nil)
		assert.Equal(t, http.StatusFound, rec.Code, "index %s", index)
		assert.Equal(t, "/", rec.Header().Get("Location"), "index %s", index)
	}
}

func TestToggleTheme(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/toggle_theme", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.True(t, f.session.DarkMode())

	page := f.do(http.MethodGet, "/", nil)
	assert.Contains(t, page.Body.String(), "bf-theme-dark")

	f.do(http.MethodPost, "/toggle_theme", nil)
	assert.False(t, f.session.DarkMode())
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
