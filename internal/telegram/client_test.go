// ABOUTME: Tests for the Bot API client against a fake HTTP server
// ABOUTME: Covers envelope decoding, offset advancement, and error classification

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "TEST_TOKEN")
}

func TestGetMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTEST_TOKEN/getMe", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 42, "is_bot": true, "username": "relay_bot"},
		})
	})

	me, err := c.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), me.ID)
	assert.Equal(t, "relay_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestGetUpdates_AdvancesOffset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTEST_TOKEN/getUpdates", r.URL.Path)

		var req getUpdatesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(100), req.Offset)
		assert.Equal(t, 50, req.Limit)

		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{"update_id": 100, "message": map[string]any{"message_id": 1, "text": "a", "chat": map[string]any{"id": 7}}},
				{"update_id": 103, "message": map[string]any{"message_id": 2, "text": "b", "chat": map[string]any{"id": 7}}},
			},
		})
	})

	updates, next, err := c.GetUpdates(context.Background(), 100, 50, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(104), next)
	assert.Equal(t, "a", updates[0].Message.Text)
}

func TestGetUpdates_EmptyKeepsOffset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": []any{}})
	})

	updates, next, err := c.GetUpdates(context.Background(), 55, 100, time.Second)
	require.NoError(t, err)
	assert.Empty(t, updates)
	assert.Equal(t, int64(55), next)
}

func TestSendMessage_EmptyTextPlaceholder(t *testing.T) {
	var sent sendMessageRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	})

	require.NoError(t, c.SendMessage(context.Background(), 9, "   ", ""))
	assert.Equal(t, "(empty)", sent.Text)
	assert.Equal(t, int64(9), sent.ChatID)
}

func TestRequestError_Conflict(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		wantErr bool
	}{
		{
			name:    "http 409",
			status:  http.StatusConflict,
			body:    map[string]any{"ok": false, "error_code": 409, "description": "Conflict: terminated by other getUpdates request"},
			wantErr: true,
		},
		{
			name:    "nested error_code 409 with http 200",
			status:  http.StatusOK,
			body:    map[string]any{"ok": false, "error_code": 409, "description": "Conflict"},
			wantErr: true,
		},
		{
			name:    "other failure",
			status:  http.StatusBadRequest,
			body:    map[string]any{"ok": false, "error_code": 400, "description": "Bad Request"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			})

			_, _, err := c.GetUpdates(context.Background(), 0, 100, time.Second)
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.wantErr, IsConflict(err))
		})
	}
}

func TestIsConflict_ForeignError(t *testing.T) {
	assert.False(t, IsConflict(nil))
	assert.False(t, IsConflict(fmt.Errorf("409 looking string")))
}

func TestIsPollTimeout(t *testing.T) {
	assert.True(t, IsPollTimeout(context.DeadlineExceeded))
	assert.True(t, IsPollTimeout(fmt.Errorf("getUpdates: %w", context.DeadlineExceeded)))
	assert.False(t, IsPollTimeout(nil))
	assert.False(t, IsPollTimeout(errors.New("connection refused")))
}

func TestIsParseError(t *testing.T) {
	assert.True(t, IsParseError(&RequestError{
		Method:      "sendMessage",
		StatusCode:  400,
		Description: "Bad Request: can't parse entities: unclosed tag",
	}))
	assert.False(t, IsParseError(&RequestError{StatusCode: 400, Description: "Bad Request: chat not found"}))
	assert.False(t, IsParseError(errors.New("can't parse entities")))
}
