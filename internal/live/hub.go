// Package live streams poll and board snapshots to websocket clients. A
// fresh snapshot is pushed after every committed change below a store
// prefix; bursts of changes collapse into one push.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/logger"
	"github.com/iliyamo/netplay-club/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// SnapshotFunc produces the current state pushed to clients.
type SnapshotFunc func(ctx context.Context) (any, error)

// Message is the frame written for every push.
type Message struct {
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
	Data  any       `json:"data"`
}

type Hub struct {
	store    docstore.Store
	metrics  *metrics.Metrics
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHub(store docstore.Store, m *metrics.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		store:   store,
		metrics: m,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and streams snapshots of topic until the
// client goes away. Changes to keys under prefix trigger a new snapshot.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic, prefix string, snapshot SnapshotFunc) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	dirty := make(chan struct{}, 1)
	unsubscribe, err := h.store.Subscribe(ctx, prefix, func(docstore.Change) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	if err != nil {
		h.log.ErrorContext(ctx, "live subscription failed", slog.String("topic", topic), slog.Any("error", err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"), time.Now().Add(writeWait))
		return err
	}
	defer unsubscribe()

	h.metrics.LiveConnected(topic)
	defer h.metrics.LiveDisconnected(topic)
	h.log.DebugContext(ctx, "live client connected", slog.String("topic", topic), slog.String("remote", r.RemoteAddr))

	go readPump(conn, cancel)
	return h.writePump(ctx, conn, topic, snapshot, dirty)
}

// readPump discards client frames and keeps the read deadline alive on
// pongs. It cancels ctx when the connection breaks.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, topic string, snapshot SnapshotFunc, dirty <-chan struct{}) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	push := func() error {
		data, err := snapshot(ctx)
		if err != nil {
			h.log.WarnContext(ctx, "live snapshot failed", slog.String("topic", topic), slog.Any("error", err))
			data = map[string]string{"error": err.Error()}
		}
		raw, err := json.Marshal(Message{Topic: topic, At: time.Now().UTC(), Data: data})
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, raw)
	}

	if err := push(); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case <-dirty:
			if err := push(); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
