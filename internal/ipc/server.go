package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	connTimeout            = 30 * time.Second
	maxConcurrentConns     = 16
	connSlotAcquireTimeout = 5 * time.Second
)

// Server accepts control connections and hands each request to an executor.
type Server struct {
	endpoint string
	executor CommandExecutor

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	wg        sync.WaitGroup
	connSlots chan struct{}
}

// NewServer creates a server for endpoint ("" means DefaultEndpoint).
func NewServer(endpoint string, executor CommandExecutor) *Server {
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		endpoint:  endpoint,
		executor:  executor,
		ctx:       ctx,
		cancel:    cancel,
		connSlots: make(chan struct{}, maxConcurrentConns),
	}
}

// Endpoint returns the pipe name or socket path.
func (s *Server) Endpoint() string {
	return s.endpoint
}

// Start begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("ipc server already started")
	}
	if s.executor == nil {
		return errors.New("ipc server requires an executor")
	}
	ln, err := listen(s.endpoint)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.endpoint, err)
	}
	s.listener = ln
	s.started = true
	s.wg.Go(s.acceptLoop)
	slog.Info("[ipc] control endpoint listening", "endpoint", s.endpoint)
	return nil
}

// Stop closes the listener and waits for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	var closeErr error
	if ln != nil {
		closeErr = ln.Close()
	}
	s.wg.Wait()
	return closeErr
}

func (s *Server) acceptLoop() {
	failures := 0
	for {
		s.mu.Lock()
		ln := s.listener
		s.mu.Unlock()
		if ln == nil {
			return
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			failures++
			if failures > 10 {
				slog.Warn("[ipc] accept keeps failing", "error", err, "count", failures)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		failures = 0

		if !s.acquireSlot() {
			s.respond(conn, Failure("server busy, try again later"))
			_ = conn.Close()
			continue
		}
		s.wg.Go(func() {
			defer s.releaseSlot()
			s.handle(conn)
		})
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(connTimeout)); err != nil {
		slog.Warn("[ipc] failed to set connection deadline", "error", err)
		return
	}

	raw, err := readFrame(bufio.NewReaderSize(conn, maxRequestBytes+1), maxRequestBytes)
	if errors.Is(err, io.EOF) {
		slog.Debug("[ipc] client disconnected without sending data")
		return
	}
	if err != nil {
		s.respond(conn, Failure("invalid request: %v", err))
		return
	}
	req, err := decodeRequest(raw)
	if err != nil {
		s.respond(conn, Failure("invalid request: %v", err))
		return
	}

	slog.Debug("[ipc] request", "command", req.Command, "args", req.Args)
	s.respond(conn, s.executor.Execute(req))
}

func (s *Server) respond(conn net.Conn, resp Response) {
	if err := writeFrame(conn, resp); err != nil {
		slog.Debug("[ipc] failed to write response", "error", err)
	}
}

func (s *Server) acquireSlot() bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case s.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[ipc] connection slots exhausted, rejecting client")
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *Server) releaseSlot() {
	<-s.connSlots
}
