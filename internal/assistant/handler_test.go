package assistant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

func newChatHandler(t *testing.T) (*ChatHandler, *fixture) {
	t.Helper()
	f := newFixture(t)
	return NewChatHandler(f.assistant, logging.NewWithWriter("error", testWriter{t})), f
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	h, _ := newChatHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"  "}`))
	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsMalformedJSON(t *testing.T) {
	h, _ := newChatHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`not json`))
	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMintsSessionIDWhenAbsent(t *testing.T) {
	h, _ := newChatHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.SessionID)
	assert.Contains(t, result.Message, "appointment scheduling assistant")
}

func TestChatReusesProvidedSessionID(t *testing.T) {
	h, f := newChatHandler(t)

	body := `{"message":"I want to book an appointment","session_id":"web-123"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "web-123", result.SessionID)
	assert.Equal(t, "book", f.sessions.LastIntent("web-123"))
}
