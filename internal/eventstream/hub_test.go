package eventstream

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(HubOptions{})
	if err := h.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })
	return h
}

func dialTestHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.URL(), nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", h.URL(), err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	msgType, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Fatalf("message type = %d, want text", msgType)
	}
	msg, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("DecodeMessage(%s) error = %v", payload, err)
	}
	return msg
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubURLBeforeStart(t *testing.T) {
	if got := NewHub(HubOptions{}).URL(); got != "" {
		t.Fatalf("URL() before Start = %q, want empty", got)
	}
}

func TestHubStartTwice(t *testing.T) {
	h := startTestHub(t)
	if err := h.Start(t.Context()); err == nil {
		t.Fatal("second Start() error = nil, want error")
	}
	if !strings.HasPrefix(h.URL(), "ws://127.0.0.1:") || !strings.HasSuffix(h.URL(), "/events") {
		t.Fatalf("URL() = %q", h.URL())
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	origNow := nowFn
	nowFn = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	t.Cleanup(func() { nowFn = origNow })

	h := startTestHub(t)
	a := dialTestHub(t, h)
	b := dialTestHub(t, h)
	for _, conn := range []*websocket.Conn{a, b} {
		if msg := readMessage(t, conn); msg.Type != TypeHello {
			t.Fatalf("first frame type = %q, want hello", msg.Type)
		}
	}
	waitForClients(t, h, 2)

	h.Broadcast("hotkey-pressed")
	h.Broadcast("hotkey-released")

	for _, conn := range []*websocket.Conn{a, b} {
		first := readMessage(t, conn)
		second := readMessage(t, conn)
		if first.Name != "hotkey-pressed" || second.Name != "hotkey-released" {
			t.Fatalf("events = %q, %q", first.Name, second.Name)
		}
		if second.Seq != first.Seq+1 {
			t.Fatalf("seq = %d then %d, want consecutive", first.Seq, second.Seq)
		}
		if first.TS != 1_700_000_000_000 {
			t.Fatalf("ts = %d", first.TS)
		}
	}
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	h := startTestHub(t)
	h.Broadcast("hotkey-pressed")
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d", h.ClientCount())
	}
}

func TestHubRemovesDisconnectedClient(t *testing.T) {
	h := startTestHub(t)
	conn := dialTestHub(t, h)
	readMessage(t, conn)
	waitForClients(t, h, 1)

	_ = conn.Close()
	waitForClients(t, h, 0)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := startTestHub(t)
	// Never read: the socket buffers fill and the send queue overflows.
	dialTestHub(t, h)
	waitForClients(t, h, 1)

	payload := strings.Repeat("x", 512)
	deadline := time.Now().Add(5 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was never dropped")
		}
		for range sendQueueSize {
			h.Broadcast(payload)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	h := NewHub(HubOptions{})
	if err := h.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn := dialTestHub(t, h)
	readMessage(t, conn)

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("ReadMessage() after Stop succeeded, want error")
	}
}

func TestSubscribe(t *testing.T) {
	h := startTestHub(t)
	ctx, cancel := context.WithCancel(t.Context())

	var mu sync.Mutex
	var got []Message
	done := make(chan error, 1)
	go func() {
		done <- Subscribe(ctx, h.URL(), func(msg Message) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		})
	}()
	waitForClients(t, h, 1)
	h.Broadcast("hotkey-pressed")

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d frames, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Subscribe() error = %v, want nil after cancel", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0].Type != TypeHello || got[1].Name != "hotkey-pressed" {
		t.Fatalf("frames = %+v", got)
	}
}

func TestSubscribeDialError(t *testing.T) {
	if err := Subscribe(t.Context(), "ws://127.0.0.1:1/events", func(Message) {}); err == nil {
		t.Fatal("Subscribe() error = nil, want dial error")
	}
}
