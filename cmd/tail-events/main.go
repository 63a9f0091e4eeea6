// Command tail-events prints pipeline events from a running voicechat -web.
//
// Usage:
//
//	go run ./cmd/tail-events/ -url ws://localhost:8080/ws/events
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var (
	url     = flag.String("url", "ws://localhost:8080/ws/events", "Event stream URL")
	rawJSON = flag.Bool("json", false, "Print raw JSON events")
)

// event mirrors the fields of pipeline.Event the tail prints.
type event struct {
	Type    string    `json:"type"`
	State   string    `json:"state"`
	Message string    `json:"message"`
	Kind    string    `json:"kind"`
	Time    time.Time `json:"time"`
	Turn    *struct {
		ID      string `json:"id"`
		Role    string `json:"role"`
		Content string `json:"content"`
		Audio   *struct {
			Format string `json:"format"`
		} `json:"audio"`
	} `json:"turn"`
}

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ connect %s: %v\n", *url, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Fprintf(os.Stderr, "📡 Connected to %s\n", *url)

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	if err := tail(conn, os.Stdout, *rawJSON); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// reader is the subset of *websocket.Conn tail needs.
type reader interface {
	ReadMessage() (int, []byte, error)
}

// tail prints events until the connection closes.
func tail(conn reader, w io.Writer, raw bool) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		if raw {
			fmt.Fprintln(w, string(data))
			continue
		}

		var e event
		if err := json.Unmarshal(data, &e); err != nil {
			fmt.Fprintf(w, "? %s\n", data)
			continue
		}
		fmt.Fprintln(w, format(e))
	}
}

func format(e event) string {
	ts := e.Time.Format("15:04:05.000")
	switch e.Type {
	case "state":
		return fmt.Sprintf("%s  state    %s", ts, e.State)
	case "turn":
		if e.Turn == nil {
			return fmt.Sprintf("%s  turn", ts)
		}
		return fmt.Sprintf("%s  %-8s %s", ts, e.Turn.Role, e.Turn.Content)
	case "audio":
		if e.Turn != nil && e.Turn.Audio != nil {
			return fmt.Sprintf("%s  audio    %s (%s)", ts, e.Turn.ID, e.Turn.Audio.Format)
		}
		return fmt.Sprintf("%s  audio", ts)
	case "warning", "error":
		return fmt.Sprintf("%s  %-8s [%s] %s", ts, e.Type, e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s  %s", ts, e.Type)
	}
}
