package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/netplay-club/internal/docstore"
	"github.com/iliyamo/netplay-club/internal/metrics"
)

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func liveGauge(t *testing.T, reg *prometheus.Registry, topic string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "netplay_live_connections" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "topic" && l.GetValue() == topic {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func TestServePushesSnapshotOnChange(t *testing.T) {
	store := docstore.NewMemory()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := NewHub(store, m, nil)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "board", "board/", func(context.Context) (any, error) {
			return map[string]int32{"version": calls.Add(1)}, nil
		})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	assert.Equal(t, "board", first.Topic)
	assert.Equal(t, map[string]any{"version": float64(1)}, first.Data)

	require.Eventually(t, func() bool {
		return liveGauge(t, reg, "board") == 1
	}, 2*time.Second, 10*time.Millisecond)

	// outside the prefix: no push
	require.NoError(t, store.Replace(context.Background(), "polls/p1", []byte(`{}`)))
	require.NoError(t, store.Replace(context.Background(), "board/waiting", []byte(`{"groups":[]}`)))

	second := readMessage(t, conn)
	assert.Equal(t, map[string]any{"version": float64(2)}, second.Data)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return liveGauge(t, reg, "board") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
