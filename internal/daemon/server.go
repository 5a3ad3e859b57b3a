package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// RequestHandler answers the control socket's dispatchable methods.
type RequestHandler interface {
	GetStatus() StatusResult
	RefreshIndex(ctx context.Context, params RefreshIndexParams) (RefreshIndexResult, error)
}

// Server listens on a Unix socket and handles control-protocol requests.
type Server struct {
	socketPath string
	listener   net.Listener
	handler    RequestHandler
	started    time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a control server that will listen on the given socket
// path once ListenAndServe is called.
func NewServer(socketPath string, handler RequestHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{socketPath: socketPath, handler: handler, logger: logger}
}

// ListenAndServe starts the server and blocks until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	s.started = time.Now()

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	s.logger.Info("control socket listening", slog.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			s.logger.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		s.logger.Warn("failed to set connection deadline", slog.String("error", err.Error()))
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse("", ErrCodeParseError, "failed to parse request"))
		return
	}

	_ = encoder.Encode(s.handleRequest(ctx, req))
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, PingResult{Pong: true})
	case MethodStatus:
		return NewSuccessResponse(req.ID, s.getStatus())
	case MethodRefreshIndex:
		return s.handleRefreshIndex(ctx, req)
	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleRefreshIndex(ctx context.Context, req Request) Response {
	if s.handler == nil {
		return NewErrorResponse(req.ID, ErrCodeInternalError, "no handler configured")
	}

	paramsData, err := json.Marshal(req.Params)
	if err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to encode params")
	}
	var params RefreshIndexParams
	if len(paramsData) > 0 && string(paramsData) != "null" {
		if err := json.Unmarshal(paramsData, &params); err != nil {
			return NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to decode params")
		}
	}

	result, err := s.handler.RefreshIndex(ctx, params)
	if err != nil {
		return NewErrorResponse(req.ID, ErrCodeRefreshFailed, err.Error())
	}
	return NewSuccessResponse(req.ID, result)
}

func (s *Server) getStatus() StatusResult {
	status := StatusResult{Running: true, PID: os.Getpid(), Uptime: time.Since(s.started).Round(time.Second).String()}
	if s.handler != nil {
		handlerStatus := s.handler.GetStatus()
		status.Watching = handlerStatus.Watching
		status.TotalSymbols = handlerStatus.TotalSymbols
		status.TotalEdges = handlerStatus.TotalEdges
		status.CheckpointStage = handlerStatus.CheckpointStage
	}
	return status
}

// Close stops the server.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
