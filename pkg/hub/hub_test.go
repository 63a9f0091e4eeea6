package hub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	closed chan struct{}
	once   sync.Once
	wrote  chan struct{}
}

type frame struct {
	kind int
	data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{}), wrote: make(chan struct{}, 16)}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	f.frames = append(f.frames, frame{kind, append([]byte(nil), data...)})
	f.mu.Unlock()
	select {
	case f.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Frames() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.frames...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(quietLogger())
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	c, err := NewClient(h, conn)
	if err != nil {
		t.Fatal(err)
	}
	go c.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]string{"type": "turn"}); err != nil {
		t.Fatal(err)
	}
	h.BroadcastBinary([]byte{1, 2, 3})

	waitFor(t, func() bool { return len(conn.Frames()) >= 2 })
	frames := conn.Frames()
	if frames[0].kind != websocket.TextMessage || string(frames[0].data) != `{"type":"turn"}` {
		t.Errorf("unexpected first frame: %d %q", frames[0].kind, frames[0].data)
	}
	if frames[1].kind != websocket.BinaryMessage || len(frames[1].data) != 3 {
		t.Errorf("unexpected second frame: %d %v", frames[1].kind, frames[1].data)
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHubShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New(quietLogger())
	go h.Run(ctx)
	waitFor(t, h.IsRunning)

	conn := newFakeConn()
	c, err := NewClient(h, conn)
	if err != nil {
		t.Fatal(err)
	}
	go c.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("hub should report stopped")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown", h.ClientCount())
	}

	if _, err := NewClient(h, newFakeConn()); !errors.Is(err, ErrClosed) {
		t.Errorf("NewClient() after shutdown error = %v, want ErrClosed", err)
	}

	// Broadcasting to a stopped hub is a no-op.
	h.BroadcastBinary([]byte{1})
}
