// Package ws streams reconcile reports to websocket clients. Each client says
// HELLO, gets WELCOME, then receives REPORT and RETRY messages for the bases
// it subscribed to and may replay buffered reports with REPORTS_REQ.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"baseplan.ai/internal/protocol"
	"baseplan.ai/internal/sim/planning/reconcile"
)

const (
	defaultHistory  = 1024
	defaultOutQueue = 64
	maxBatch        = 256
)

// Welcomer describes the planner to a new session.
type Welcomer interface {
	Welcome(sessionID string) protocol.WelcomeMsg
}

type Options struct {
	// History is how many reports are kept for REPORTS_REQ replay.
	History int
	// OutQueue bounds each client's pending messages; the oldest is dropped
	// when it is full.
	OutQueue int
}

type client struct {
	id    string
	bases map[string]bool
	out   chan []byte
}

func (c *client) wants(baseID string) bool {
	return len(c.bases) == 0 || c.bases[baseID]
}

type Server struct {
	planner Welcomer
	log     *log.Logger
	opts    Options

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	history []protocol.ReportMsg
	cursor  uint64
}

func NewServer(p Welcomer, logger *log.Logger, opts Options) *Server {
	if opts.History <= 0 {
		opts.History = defaultHistory
	}
	if opts.OutQueue <= 0 {
		opts.OutQueue = defaultOutQueue
	}
	return &Server{
		planner: p,
		log:     logger,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[*client]struct{}{},
	}
}

// WriteReport buffers r under the next cursor and fans it out.
func (s *Server) WriteReport(r reconcile.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor++
	msg := protocol.NewReportMsg(s.cursor, r)
	s.history = append(s.history, msg)
	if over := len(s.history) - s.opts.History; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.broadcastLocked(r.BaseID, b)
	return nil
}

// WriteRetry fans out a delay queue pass. Retries are not buffered.
func (s *Server) WriteRetry(tick uint64, r reconcile.RetryReport) error {
	b, err := json.Marshal(protocol.NewRetryMsg(tick, r))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(r.BaseID, b)
	return nil
}

func (s *Server) broadcastLocked(baseID string, b []byte) {
	for c := range s.clients {
		if c.wants(baseID) {
			sendLatest(c.out, b)
		}
	}
}

// reports returns up to limit buffered reports with cursor > since, filtered
// for c, and the cursor to resume from.
func (s *Server) reports(c *client, since uint64, limit int) ([]protocol.ReportMsg, uint64) {
	if limit <= 0 || limit > maxBatch {
		limit = maxBatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []protocol.ReportMsg{}
	next := since
	for _, m := range s.history {
		if m.Cursor <= since {
			continue
		}
		if len(out) == limit {
			break
		}
		next = m.Cursor
		if c.wants(m.Report.BaseID) {
			out = append(out, m)
		}
	}
	return out, next
}

// Clients is the number of connected sessions.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := s.handshake(conn)
		if c == nil {
			return
		}
		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handle(c, msg)
		}
	}
}

func (s *Server) handle(c *client, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.reply(c, protocol.NewErrorMsg(protocol.ErrBadRequest, "malformed json"))
		return
	}
	switch base.Type {
	case protocol.TypeReportsReq:
		var req protocol.ReportsReqMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			s.reply(c, protocol.NewErrorMsg(protocol.ErrBadRequest, "bad REPORTS_REQ"))
			return
		}
		reports, next := s.reports(c, req.SinceCursor, req.Limit)
		s.reply(c, protocol.ReportBatchMsg{
			Type:            protocol.TypeReportBatch,
			ProtocolVersion: protocol.Version,
			ReqID:           req.ReqID,
			Reports:         reports,
			NextCursor:      next,
		})
	default:
		s.reply(c, protocol.NewErrorMsg(protocol.ErrBadRequest, "unexpected message type "+base.Type))
	}
}

func (s *Server) reply(c *client, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logf("ws: marshal reply: %v", err)
		return
	}
	sendLatest(c.out, b)
}

func (s *Server) handshake(conn *websocket.Conn) *client {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewErrorMsg(protocol.ErrBadRequest, "bad protocol_version"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	c := &client{id: uuid.NewString(), out: make(chan []byte, s.opts.OutQueue)}
	if len(hello.Bases) > 0 {
		c.bases = make(map[string]bool, len(hello.Bases))
		for _, b := range hello.Bases {
			c.bases[b] = true
		}
	}
	if err := writeJSON(conn, s.planner.Welcome(c.id)); err != nil {
		return nil
	}
	name := hello.ClientName
	if name == "" {
		name = "client"
	}
	s.logf("ws: session=%s client=%s bases=%v", c.id, name, hello.Bases)
	return c
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
