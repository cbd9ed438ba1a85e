// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package authority

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfall/gridfall/internal/ecs"
)

var upgrader = websocket.Upgrader{}

// fakeServer speaks the frame protocol: it sends a hello, acknowledges
// submissions, and settles them according to the handler.
type fakeServer struct {
	t       *testing.T
	version string
	handle  func(conn *websocket.Conn, f frame)

	srv *httptest.Server
}

func newFakeServer(t *testing.T, version string, handle func(conn *websocket.Conn, f frame)) *fakeServer {
	fs := &fakeServer{t: t, version: version, handle: handle}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		var writeMu sync.Mutex
		write := func(f frame) {
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.WriteJSON(f)
		}
		write(frame{Kind: "hello", ProtocolVersion: version})
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if handle != nil {
				handle(conn, f)
			}
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func testConfig(url string) WSConfig {
	return WSConfig{
		URL:                url,
		ProtocolConstraint: ">= 1.0.0, < 2.0.0",
		DialTimeout:        2 * time.Second,
		MaxDialAttempts:    1,
	}
}

func echoSettler(success bool, errMsg string) func(conn *websocket.Conn, f frame) {
	return func(conn *websocket.Conn, f frame) {
		if f.Kind != "submit" {
			return
		}
		tx := TxHandle("tx:" + f.ID)
		_ = conn.WriteJSON(frame{Kind: "submitted", ID: f.ID, Tx: tx})
		_ = conn.WriteJSON(frame{Kind: "settlement", Tx: tx, Success: success, Error: errMsg})
	}
}

func TestDialHandshake(t *testing.T) {
	t.Run("accepts version inside constraint", func(t *testing.T) {
		fs := newFakeServer(t, "1.3.0", nil)
		c, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, "1.3.0", c.ProtocolVersion())
	})

	t.Run("rejects version outside constraint", func(t *testing.T) {
		fs := newFakeServer(t, "2.0.0", nil)
		_, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "protocol")
	})

	t.Run("rejects unparseable version", func(t *testing.T) {
		fs := newFakeServer(t, "not-a-version", nil)
		_, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.Error(t, err)
	})
}

func TestSubmitAndSettle(t *testing.T) {
	t.Run("successful settlement", func(t *testing.T) {
		fs := newFakeServer(t, "1.0.0", echoSettler(true, ""))
		c, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.NoError(t, err)
		defer c.Close()

		tx, err := c.Submit(context.Background(), OpMove, map[string]int{"x": 3, "y": 4})
		require.NoError(t, err)
		require.NotEmpty(t, tx)

		s, err := c.AwaitSettlement(context.Background(), tx)
		require.NoError(t, err)
		assert.True(t, s.Success)
	})

	t.Run("failed settlement carries error", func(t *testing.T) {
		fs := newFakeServer(t, "1.0.0", echoSettler(false, "insufficient funds"))
		c, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.NoError(t, err)
		defer c.Close()

		tx, err := c.Submit(context.Background(), OpSpawn, nil)
		require.NoError(t, err)
		s, err := c.AwaitSettlement(context.Background(), tx)
		require.NoError(t, err)
		assert.False(t, s.Success)
		assert.Equal(t, "insufficient funds", s.Error)
	})

	t.Run("settlement arriving before await is not lost", func(t *testing.T) {
		fs := newFakeServer(t, "1.0.0", echoSettler(true, ""))
		c, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.NoError(t, err)
		defer c.Close()

		tx, err := c.Submit(context.Background(), OpAttack, nil)
		require.NoError(t, err)
		// Give the settlement frame time to land before anyone waits.
		time.Sleep(50 * time.Millisecond)
		s, err := c.AwaitSettlement(context.Background(), tx)
		require.NoError(t, err)
		assert.True(t, s.Success)
	})

	t.Run("await respects context cancellation", func(t *testing.T) {
		// Server acknowledges but never settles.
		fs := newFakeServer(t, "1.0.0", func(conn *websocket.Conn, f frame) {
			if f.Kind == "submit" {
				_ = conn.WriteJSON(frame{Kind: "submitted", ID: f.ID, Tx: TxHandle("tx:" + f.ID)})
			}
		})
		c, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
		require.NoError(t, err)
		defer c.Close()

		tx, err := c.Submit(context.Background(), OpLogout, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err = c.AwaitSettlement(ctx, tx)
		require.Error(t, err)
	})
}

func TestCommitDispatch(t *testing.T) {
	type commit struct {
		table  string
		entity ecs.Entity
		value  json.RawMessage
	}
	got := make(chan commit, 4)
	handler := func(table string, entity ecs.Entity, value json.RawMessage) {
		got <- commit{table, entity, value}
	}

	// The fake server only reacts to inbound frames, so drive the commit
	// with a submit.
	fs := newFakeServer(t, "1.0.0", func(conn *websocket.Conn, f frame) {
		if f.Kind == "submit" {
			_ = conn.WriteJSON(frame{Kind: "commit", Table: "Position", Entity: "ent:abc", Value: json.RawMessage(`{"x":1,"y":2}`)})
			_ = conn.WriteJSON(frame{Kind: "submitted", ID: f.ID, Tx: TxHandle("tx:" + f.ID)})
		}
	})
	c, err := Dial(context.Background(), testConfig(fs.url()), handler, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Submit(context.Background(), OpMove, nil)
	require.NoError(t, err)

	select {
	case cm := <-got:
		assert.Equal(t, "Position", cm.table)
		assert.Equal(t, ecs.Entity("ent:abc"), cm.entity)
		assert.JSONEq(t, `{"x":1,"y":2}`, string(cm.value))
	case <-time.After(2 * time.Second):
		t.Fatal("commit was not dispatched")
	}
}

func TestDisconnectReleasesWaiters(t *testing.T) {
	fs := newFakeServer(t, "1.0.0", func(conn *websocket.Conn, f frame) {
		if f.Kind == "submit" {
			_ = conn.WriteJSON(frame{Kind: "submitted", ID: f.ID, Tx: TxHandle("tx:" + f.ID)})
			conn.Close()
		}
	})
	c, err := Dial(context.Background(), testConfig(fs.url()), nil, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	tx, err := c.Submit(context.Background(), OpMove, nil)
	require.NoError(t, err)

	_, err = c.AwaitSettlement(context.Background(), tx)
	require.Error(t, err)
}
