package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"nichescope/internal/domain/models"
	xhttp "nichescope/pkg/http"
	xlogger "nichescope/pkg/logger"
)

const (
	streamWriteWait   = 10 * time.Second
	streamRequestWait = 30 * time.Second
	streamMaxMessage  = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamEvent is one frame of the evaluation stream: progress, result or error.
type streamEvent struct {
	Type     string                   `json:"type"`
	Progress *models.Progress         `json:"progress,omitempty"`
	Result   *models.EvaluationResult `json:"result,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Errors   []xhttp.ValidationError  `json:"errors,omitempty"`
}

// streamConn serialises writes; gorilla connections allow one concurrent writer.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamConn) send(ev streamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return s.conn.WriteJSON(ev)
}

func (s *streamConn) close(code int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(streamWriteWait))
}

// EvaluateStream reads one evaluation request from the socket, streams pipeline progress
// and finishes with the result. Closing the socket cancels the evaluation.
func (h *NichesHandler) EvaluateStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()
	s := &streamConn{conn: conn}

	conn.SetReadLimit(streamMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(streamRequestWait))
	req := h.svc.NewEvaluateRequest()
	if err := conn.ReadJSON(req); err != nil {
		_ = s.send(streamEvent{Type: "error", Error: "expected an evaluation request: " + err.Error()})
		s.close(websocket.CloseUnsupportedData, "bad request")
		return nil
	}
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	if errs := xhttp.ValidateStruct(ctx, req); errs != nil {
		_ = s.send(streamEvent{Type: "error", Error: "invalid request", Errors: errs})
		s.close(websocket.ClosePolicyViolation, "invalid request")
		return nil
	}

	_ = conn.SetReadDeadline(time.Time{})
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	res, err := h.svc.Evaluate(ctx, *req, func(p models.Progress) {
		if err := s.send(streamEvent{Type: "progress", Progress: &p}); err != nil {
			cancel()
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("evaluation stream closed by client")
			return nil
		}
		msg := "evaluation failed"
		if appErr := toAppError(err); appErr != nil {
			msg = appErr.Message
		} else {
			h.logger.Error("evaluate stream usecase error", xlogger.Error(err))
		}
		_ = s.send(streamEvent{Type: "error", Error: msg})
		s.close(websocket.CloseInternalServerErr, "evaluation failed")
		return nil
	}
	if err := s.send(streamEvent{Type: "result", Result: res}); err != nil {
		h.logger.Warn("evaluation stream write failed", xlogger.String("run_id", res.RunID), xlogger.Error(err))
		return nil
	}
	s.close(websocket.CloseNormalClosure, "done")
	return nil
}
