package eventstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Subscribe connects to a stream URL and calls fn for every frame until ctx
// is cancelled or the connection fails. It returns nil on cancellation.
func Subscribe(ctx context.Context, url string, fn func(Message)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("eventstream: dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeDeadline))
		_ = conn.Close()
	})
	defer stop()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("eventstream: read: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := DecodeMessage(payload)
		if err != nil {
			slog.Debug("[DEBUG-WS] skipping undecodable frame", "error", err)
			continue
		}
		fn(msg)
	}
}
