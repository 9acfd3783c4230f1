// Package logstream tails environment logs over the platform's websocket feed.
//
// The protocol is JSON messages keyed by "cmd". The client authenticates with
// the parameters the API handed out, enables each advertised log source whose
// type passes the filter, then prints every "line" message it receives.
package logstream

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logger"
)

// LogType is a log source the feed can carry.
type LogType struct {
	Type  string
	Label string
}

// LogTypes lists the sources users can choose from.
var LogTypes = []LogType{
	{Type: "apache-request", Label: "Apache request"},
	{Type: "apache-error", Label: "Apache error"},
	{Type: "bal-request", Label: "Balancer request"},
	{Type: "drupal-request", Label: "Drupal request"},
	{Type: "drupal-watchdog", Label: "Drupal watchdog"},
	{Type: "php-error", Label: "PHP error"},
	{Type: "mysql-slow", Label: "MySQL slow query"},
	{Type: "varnish-request", Label: "Varnish request"},
}

// IsKnownType reports whether t names one of LogTypes.
func IsKnownType(t string) bool {
	for _, lt := range LogTypes {
		if lt.Type == t {
			return true
		}
	}
	return false
}

// Message is one frame of the feed, in either direction.
type Message struct {
	Cmd         string `json:"cmd"`
	Type        string `json:"type,omitempty"`
	Server      string `json:"server,omitempty"`
	DisplayType string `json:"display_type,omitempty"`
	LogType     string `json:"log_type,omitempty"`
	Text        string `json:"text,omitempty"`
	Msg         string `json:"msg,omitempty"`
}

// Streamer holds one tail session's settings.
type Streamer struct {
	URL    string
	Params map[string]any

	// Types filters which sources are enabled. Empty enables all.
	Types []string

	Colorize bool
	Out      io.Writer
	Log      logger.Logger
}

// NewStreamer returns a streamer for the given endpoint.
func NewStreamer(url string, params map[string]any, out io.Writer) *Streamer {
	return &Streamer{
		URL:      url,
		Params:   params,
		Colorize: true,
		Out:      out,
		Log:      logger.Noop(),
	}
}

// Stream connects and prints log lines until ctx is cancelled or the server
// closes the connection. Cancellation is a normal way to stop and returns nil.
func (s *Streamer) Stream(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.URL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrAPI,
			"Couldn't connect to the log stream",
			"The stream URL expires quickly. Run the command again.")
	}
	defer conn.CloseNow()

	auth := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		auth[k] = v
	}
	auth["cmd"] = "authenticate"
	if err := wsjson.Write(ctx, conn, auth); err != nil {
		return s.streamError(ctx, err)
	}

	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return s.streamError(ctx, err)
		}
		if err := s.handle(ctx, conn, msg); err != nil {
			return err
		}
	}
}

func (s *Streamer) handle(ctx context.Context, conn *websocket.Conn, msg Message) error {
	switch msg.Cmd {
	case "available":
		if !s.wanted(msg.Type) {
			return nil
		}
		s.Log.Debug("enabling %s on %s", msg.Type, msg.Server)
		enable := Message{Cmd: "enable", Type: msg.Type, Server: msg.Server}
		if err := wsjson.Write(ctx, conn, enable); err != nil {
			return s.streamError(ctx, err)
		}
	case "line":
		fmt.Fprintln(s.Out, s.format(msg))
	case "error":
		return errors.New(errors.ErrRemote, "Log stream error: "+msg.Msg, "")
	default:
		s.Log.Debug("logstream: %s %s", msg.Cmd, msg.Msg)
	}
	return nil
}

func (s *Streamer) wanted(logType string) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == logType {
			return true
		}
	}
	return false
}

func (s *Streamer) streamError(ctx context.Context, err error) error {
	if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return errors.WrapWithCode(err, errors.ErrAPI,
		"The log stream ended unexpectedly",
		"Run the command again to reconnect.")
}

var typeColors = map[string]lipgloss.Color{
	"apache-request":  lipgloss.Color("#22C55E"),
	"apache-error":    lipgloss.Color("#EF4444"),
	"bal-request":     lipgloss.Color("#06B6D4"),
	"drupal-request":  lipgloss.Color("#3B82F6"),
	"drupal-watchdog": lipgloss.Color("#A855F7"),
	"php-error":       lipgloss.Color("#F97316"),
	"mysql-slow":      lipgloss.Color("#EAB308"),
	"varnish-request": lipgloss.Color("#14B8A6"),
}

func (s *Streamer) format(msg Message) string {
	text := strings.TrimRight(msg.Text, "\n")
	if !s.Colorize {
		return text
	}
	color, ok := typeColors[msg.LogType]
	if !ok {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
