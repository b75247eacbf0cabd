package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, posted *[]map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "user": "cleanup-bot", "team": "web"})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		*posted = append(*posted, map[string]string{
			"channel":     r.FormValue("channel"),
			"text":        r.FormValue("text"),
			"attachments": r.FormValue("attachments"),
		})
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.FormValue("channel"), "ts": "1700000000.000100"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPostReport(t *testing.T) {
	var posted []map[string]string
	srv := newTestServer(t, &posted)

	c := NewClient("xoxb-test", "C123", slack.OptionAPIURL(srv.URL+"/"))

	ts, err := c.PostReport(context.Background(), Report{
		Title:  "Cleanup of 1:/images/ finished",
		Text:   "Moved 2 files to recycler",
		Failed: true,
		Fields: []Field{{Title: "Failed", Value: "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", ts)

	require.Len(t, posted, 1)
	assert.Equal(t, "C123", posted[0]["channel"])
	assert.Equal(t, "Cleanup of 1:/images/ finished", posted[0]["text"])
	assert.Contains(t, posted[0]["attachments"], "danger")
	assert.Contains(t, posted[0]["attachments"], "Moved 2 files to recycler")
}

func TestValidateAuth(t *testing.T) {
	var posted []map[string]string
	srv := newTestServer(t, &posted)

	c := NewClient("xoxb-test", "C123", slack.OptionAPIURL(srv.URL+"/"))
	auth, err := c.ValidateAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cleanup-bot", auth.User)
	assert.Equal(t, "web", auth.Team)
}

func TestPostReportHonorsContext(t *testing.T) {
	c := NewClient("xoxb-test", "C123", slack.OptionAPIURL("http://127.0.0.1:1/"))
	// Drain the single burst token so the next call has to wait
	c.rateLimiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PostReport(ctx, Report{Title: "x"})
	assert.Error(t, err)
}
