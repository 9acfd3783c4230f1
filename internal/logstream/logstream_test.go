package logstream

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed is a websocket server speaking the log feed protocol.
type fakeFeed struct {
	mu       sync.Mutex
	auth     map[string]any
	enabled  []Message
	sources  []Message
	lines    []Message
	closeErr string // when set, sends an error frame instead of lines

	// expectEnable is how many enable frames to read before sending lines.
	expectEnable int
}

func (f *fakeFeed) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()

		var auth map[string]any
		if err := wsjson.Read(ctx, conn, &auth); err != nil {
			return
		}
		f.mu.Lock()
		f.auth = auth
		f.mu.Unlock()

		for _, src := range f.sources {
			if err := wsjson.Write(ctx, conn, src); err != nil {
				return
			}
		}
		if f.closeErr != "" {
			wsjson.Write(ctx, conn, Message{Cmd: "error", Msg: f.closeErr})
			return
		}

		for i := 0; i < f.expectEnable; i++ {
			var m Message
			if err := wsjson.Read(ctx, conn, &m); err != nil {
				return
			}
			f.mu.Lock()
			f.enabled = append(f.enabled, m)
			f.mu.Unlock()
		}
		for _, line := range f.lines {
			if err := wsjson.Write(ctx, conn, line); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStream_AuthenticatesEnablesAndPrints(t *testing.T) {
	feed := &fakeFeed{
		sources: []Message{
			{Cmd: "available", Type: "apache-request", Server: "web-1"},
			{Cmd: "available", Type: "apache-error", Server: "web-1"},
		},
		lines: []Message{
			{Cmd: "line", LogType: "apache-error", Server: "web-1", Text: "[error] file not found\n"},
			{Cmd: "line", LogType: "apache-error", Server: "web-1", Text: "[error] again"},
		},
		expectEnable: 1,
	}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	var out bytes.Buffer
	s := NewStreamer(wsURL(srv), map[string]any{"site": "site:dev", "hmac": "abc"}, &out)
	s.Types = []string{"apache-error"}
	s.Colorize = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stream(ctx))

	feed.mu.Lock()
	defer feed.mu.Unlock()
	assert.Equal(t, "authenticate", feed.auth["cmd"])
	assert.Equal(t, "site:dev", feed.auth["site"])
	require.Len(t, feed.enabled, 1)
	assert.Equal(t, Message{Cmd: "enable", Type: "apache-error", Server: "web-1"}, feed.enabled[0])
	assert.Equal(t, "[error] file not found\n[error] again\n", out.String())
}

func TestStream_ErrorFrame(t *testing.T) {
	feed := &fakeFeed{closeErr: "authentication failed"}
	srv := httptest.NewServer(feed.handler())
	defer srv.Close()

	err := NewStreamer(wsURL(srv), nil, &bytes.Buffer{}).Stream(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRemote))
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestStream_CancelIsClean(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, NewStreamer(wsURL(srv), nil, &bytes.Buffer{}).Stream(ctx))
}

func TestStream_DialFailure(t *testing.T) {
	err := NewStreamer("ws://127.0.0.1:1/stream", nil, &bytes.Buffer{}).Stream(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAPI))
}

func TestFormat(t *testing.T) {
	s := NewStreamer("", nil, nil)
	s.Colorize = false
	assert.Equal(t, "hello", s.format(Message{LogType: "php-error", Text: "hello\n"}))

	s.Colorize = true
	assert.Contains(t, s.format(Message{LogType: "php-error", Text: "hello"}), "hello")
	assert.Equal(t, "plain", s.format(Message{LogType: "unknown", Text: "plain"}))
}

func TestIsKnownType(t *testing.T) {
	assert.True(t, IsKnownType("php-error"))
	assert.False(t, IsKnownType("syslog"))
}
