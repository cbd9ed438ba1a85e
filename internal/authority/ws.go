// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridfall Contributors

package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridfall/gridfall/internal/ecs"
)

var tracer = otel.Tracer("gridfall/authority")

// frame is the wire envelope. Kind selects which fields are meaningful.
type frame struct {
	Kind string `json:"kind"`

	// hello
	ProtocolVersion string `json:"protocol_version,omitempty"`

	// submit / submitted
	ID   string          `json:"id,omitempty"`
	Op   Op              `json:"op,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`

	// submitted / settlement
	Tx    TxHandle `json:"tx,omitempty"`
	Error string   `json:"error,omitempty"`

	// settlement
	Success bool `json:"success,omitempty"`

	// commit
	Table  string          `json:"table,omitempty"`
	Entity string          `json:"entity,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// WSConfig configures the websocket authority client.
type WSConfig struct {
	// URL is the ws:// or wss:// endpoint.
	URL string
	// ProtocolConstraint is a semver range the server's advertised protocol
	// version must satisfy, e.g. ">= 1.0, < 2.0".
	ProtocolConstraint string
	// DialTimeout bounds each connection attempt including the hello frame.
	DialTimeout time.Duration
	// MaxDialAttempts bounds the fibonacci-backoff dial loop.
	MaxDialAttempts uint64
}

type pendingTx struct {
	op          Op
	submittedAt time.Time
}

// WSClient is a websocket implementation of Client. A single background
// goroutine owns all reads; writes are serialized by writeMu. Commits from
// the state-sync stream are handed to the CommitHandler on the read
// goroutine, preserving the stream's per-key delivery order.
type WSClient struct {
	conn     *websocket.Conn
	log      *slog.Logger
	onCommit CommitHandler

	writeMu sync.Mutex

	mu          sync.Mutex
	acks        map[string]chan frame
	settlements map[TxHandle]chan Settlement
	settled     map[TxHandle]Settlement
	inflight    map[TxHandle]pendingTx

	closeOnce sync.Once
	closed    chan struct{}
	readErr   error

	protocolVersion string
}

// Dial connects to the authority, validates the protocol handshake, and
// starts the read loop. Connection refusals are retried with fibonacci
// backoff; a protocol version outside the constraint fails immediately.
func Dial(ctx context.Context, cfg WSConfig, onCommit CommitHandler, log *slog.Logger) (*WSClient, error) {
	ctx, span := tracer.Start(ctx, "authority.Dial",
		trace.WithAttributes(attribute.String("authority.url", cfg.URL)))
	defer span.End()

	constraint, err := semver.NewConstraint(cfg.ProtocolConstraint)
	if err != nil {
		return nil, oops.Code("BAD_CONFIG").
			With("constraint", cfg.ProtocolConstraint).
			Wrapf(err, "parsing protocol constraint")
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	attempts := cfg.MaxDialAttempts
	if attempts == 0 {
		attempts = 5
	}

	var client *WSClient
	backoff := retry.WithMaxRetries(attempts, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, cfg.URL, nil)
		if err != nil {
			log.Debug("authority dial failed, will retry", "url", cfg.URL, "error", err)
			return retry.RetryableError(err)
		}

		c, err := newWSClient(conn, constraint, dialTimeout, onCommit, log)
		if err != nil {
			conn.Close()
			// A protocol mismatch will not fix itself on redial.
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, oops.Code("AUTHORITY_UNREACHABLE").
			With("url", cfg.URL).
			Wrapf(err, "connecting to authority")
	}

	span.SetAttributes(attribute.String("authority.protocol_version", client.protocolVersion))
	log.Info("connected to authority",
		"url", cfg.URL,
		"protocol_version", client.protocolVersion)
	return client, nil
}

func newWSClient(conn *websocket.Conn, constraint *semver.Constraints, helloTimeout time.Duration, onCommit CommitHandler, log *slog.Logger) (*WSClient, error) {
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		return nil, oops.Code("PROTOCOL_ERROR").Wrapf(err, "reading hello frame")
	}
	if hello.Kind != "hello" {
		return nil, oops.Code("PROTOCOL_ERROR").
			With("kind", hello.Kind).
			Errorf("expected hello frame, got %q", hello.Kind)
	}
	version, err := semver.NewVersion(hello.ProtocolVersion)
	if err != nil {
		return nil, oops.Code("PROTOCOL_ERROR").
			With("protocol_version", hello.ProtocolVersion).
			Wrapf(err, "parsing server protocol version")
	}
	if !constraint.Check(version) {
		return nil, oops.Code("PROTOCOL_MISMATCH").
			With("protocol_version", hello.ProtocolVersion).
			With("constraint", constraint.String()).
			Errorf("server protocol %s outside supported range %s", version, constraint)
	}
	conn.SetReadDeadline(time.Time{})

	c := &WSClient{
		conn:            conn,
		log:             log,
		onCommit:        onCommit,
		acks:            make(map[string]chan frame),
		settlements:     make(map[TxHandle]chan Settlement),
		settled:         make(map[TxHandle]Settlement),
		inflight:        make(map[TxHandle]pendingTx),
		closed:          make(chan struct{}),
		protocolVersion: hello.ProtocolVersion,
	}
	go c.readLoop()
	return c, nil
}

// ProtocolVersion reports the version the server advertised in its hello.
func (c *WSClient) ProtocolVersion() string { return c.protocolVersion }

// Submit sends the transaction and waits for the authority's acknowledgement
// carrying the transaction handle. It does not wait for settlement.
func (c *WSClient) Submit(ctx context.Context, op Op, args any) (TxHandle, error) {
	ctx, span := tracer.Start(ctx, "authority.Submit",
		trace.WithAttributes(attribute.String("authority.op", string(op))))
	defer span.End()

	payload, err := json.Marshal(args)
	if err != nil {
		recordSubmission(op, "error")
		return "", oops.Code("SUBMIT_FAILED").With("op", op).Wrapf(err, "encoding args")
	}

	id := ecs.NewToken().String()
	ack := make(chan frame, 1)
	c.mu.Lock()
	c.acks[id] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.acks, id)
		c.mu.Unlock()
	}()

	if err := c.writeFrame(frame{Kind: "submit", ID: id, Op: op, Args: payload}); err != nil {
		recordSubmission(op, "error")
		return "", oops.Code("SUBMIT_FAILED").With("op", op).Wrapf(err, "writing submit frame")
	}

	select {
	case <-ctx.Done():
		recordSubmission(op, "error")
		return "", oops.Code("SUBMIT_FAILED").With("op", op).Wrapf(ctx.Err(), "awaiting submit ack")
	case <-c.closed:
		recordSubmission(op, "error")
		return "", oops.Code("AUTHORITY_DISCONNECTED").With("op", op).Wrapf(c.readErr, "connection lost")
	case resp := <-ack:
		if resp.Error != "" {
			recordSubmission(op, "rejected")
			return "", oops.Code("SUBMIT_REJECTED").With("op", op).Errorf("%s", resp.Error)
		}
		c.mu.Lock()
		c.inflight[resp.Tx] = pendingTx{op: op, submittedAt: time.Now()}
		c.mu.Unlock()
		recordSubmission(op, "ok")
		span.SetAttributes(attribute.String("authority.tx", string(resp.Tx)))
		return resp.Tx, nil
	}
}

// AwaitSettlement suspends until the transaction settles, the context is
// canceled, or the connection is lost.
func (c *WSClient) AwaitSettlement(ctx context.Context, tx TxHandle) (Settlement, error) {
	ctx, span := tracer.Start(ctx, "authority.AwaitSettlement",
		trace.WithAttributes(attribute.String("authority.tx", string(tx))))
	defer span.End()

	c.mu.Lock()
	if s, ok := c.settled[tx]; ok {
		delete(c.settled, tx)
		c.mu.Unlock()
		return s, nil
	}
	ch := make(chan Settlement, 1)
	c.settlements[tx] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.settlements, tx)
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return Settlement{}, oops.Code("SETTLEMENT_ABANDONED").With("tx", tx).Wrapf(ctx.Err(), "awaiting settlement")
	case <-c.closed:
		return Settlement{}, oops.Code("AUTHORITY_DISCONNECTED").With("tx", tx).Wrapf(c.readErr, "connection lost awaiting settlement")
	case s := <-ch:
		return s, nil
	}
}

// Close tears down the connection. Waiters in Submit and AwaitSettlement
// are released with AUTHORITY_DISCONNECTED errors.
func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.readErr == nil {
			c.readErr = fmt.Errorf("client closed")
		}
		c.mu.Unlock()
		err = c.conn.Close()
		select {
		case <-c.closed:
		default:
			close(c.closed)
		}
	})
	return err
}

func (c *WSClient) writeFrame(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *WSClient) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			if c.readErr == nil {
				c.readErr = err
			}
			c.mu.Unlock()
			c.closeOnce.Do(func() {
				c.conn.Close()
				close(c.closed)
			})
			return
		}

		switch f.Kind {
		case "submitted":
			c.mu.Lock()
			ack, ok := c.acks[f.ID]
			c.mu.Unlock()
			if !ok {
				c.log.Warn("ack for unknown submission", "id", f.ID)
				continue
			}
			ack <- f

		case "settlement":
			s := Settlement{Success: f.Success, Error: f.Error}
			c.mu.Lock()
			if p, ok := c.inflight[f.Tx]; ok {
				recordSettlement(p.op, p.submittedAt)
				delete(c.inflight, f.Tx)
			}
			ch, waiting := c.settlements[f.Tx]
			if !waiting {
				c.settled[f.Tx] = s
			}
			c.mu.Unlock()
			if waiting {
				ch <- s
			}

		case "commit":
			commitsReceived.Inc()
			if c.onCommit != nil {
				c.onCommit(f.Table, ecs.Entity(f.Entity), f.Value)
			}

		default:
			c.log.Warn("unknown frame kind from authority", "kind", f.Kind)
		}
	}
}
