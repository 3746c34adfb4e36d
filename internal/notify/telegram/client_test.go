package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mengedapp/menged/internal/notify"
)

func TestSendDisabledModeIsNoOp(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, WithHTTPClient(server.Client()))
	require.False(t, client.Enabled())

	err := client.Send(context.Background(), 4242, notify.RenderedMessage{Text: "hello"})
	require.NoError(t, err)
	assert.Zero(t, calls, "disabled client must not reach the network")
}

func TestSendBuildsAPIRequest(t *testing.T) {
	var got sendMessageRequest
	var path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BotToken: "123:abc",
		BaseURL:  server.URL,
	}, WithHTTPClient(server.Client()))

	msg := notify.RenderedMessage{
		Text: "*Your request was accepted!*",
		Mode: notify.ModeMarkdown,
		Buttons: []notify.Button{
			{Label: "💬 Message John", URL: "https://t.me/johndoe"},
		},
	}
	err := client.Send(context.Background(), 4242, msg)
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, int64(4242), got.ChatID)
	assert.Equal(t, "*Your request was accepted!*", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)

	require.NotNil(t, got.ReplyMarkup)
	require.Len(t, got.ReplyMarkup.InlineKeyboard, 1)
	require.Len(t, got.ReplyMarkup.InlineKeyboard[0], 1)
	assert.Equal(t, "💬 Message John", got.ReplyMarkup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://t.me/johndoe", got.ReplyMarkup.InlineKeyboard[0][0].URL)
}

func TestSendPlainModeOmitsParseMode(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", BaseURL: server.URL}, WithHTTPClient(server.Client()))

	err := client.Send(context.Background(), 1, notify.RenderedMessage{Text: "hi", Mode: notify.ModePlain})
	require.NoError(t, err)

	assert.Empty(t, got.ParseMode)
	assert.Nil(t, got.ReplyMarkup)
}

func TestSendAPIErrorSurfacesAsSingleError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", BaseURL: server.URL}, WithHTTPClient(server.Client()))

	err := client.Send(context.Background(), 99, notify.RenderedMessage{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendOKFalseWithSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BotToken: "t", BaseURL: server.URL}, WithHTTPClient(server.Client()))

	err := client.Send(context.Background(), 99, notify.RenderedMessage{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by the user")
}
