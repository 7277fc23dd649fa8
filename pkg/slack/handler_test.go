package slack

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(nil, logger, "") // no signing secret (dev mode), bus unused below
	router := chi.NewRouter()
	router.Mount("/slack", h.Routes())
	return router
}

func TestCommands_NoSubcommand(t *testing.T) {
	router := newTestRouter()

	body := "command=%2Fnova&text=&user_id=U123&channel_id=C456"
	r := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ephemeral", resp["response_type"])
	assert.Contains(t, resp["text"], "Usage")
}

func TestCommands_UnknownSubcommand(t *testing.T) {
	router := newTestRouter()

	body := "command=%2Fnova&text=foobar&user_id=U123&channel_id=C456"
	r := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["text"], "Unknown command")
}

func TestCfoCommands_CoversAdminSinkSet(t *testing.T) {
	for _, name := range []string{
		"cfo_stop", "cfo_start", "cfo_status", "cfo_scan", "cfo_decide", "cfo_approve",
		"cfo_close_poly", "cfo_close_hl", "cfo_close_all", "cfo_stake", "cfo_deposit", "cfo_hedge",
		"scout_intel", "market_crash", "emergency_exit",
	} {
		assert.True(t, cfoCommands[name], "expected %q to be a recognized command", name)
	}
}
