package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-roadmap/internal/planner"
	"github.com/p-n-ai/pai-roadmap/internal/roadmap"
)

// Stream message types.
const (
	StreamSolverStep = "solver_step"
	StreamResult     = "result"
	StreamError      = "error"
)

// StreamMessage is one frame sent on the progress stream.
type StreamMessage struct {
	Type    string              `json:"type"`
	Step    *roadmap.SolverStep `json:"step,omitempty"`
	Roadmap *planner.Record     `json:"roadmap,omitempty"`
	Error   *ErrorBody          `json:"error,omitempty"`
}

const streamTimeout = 2 * time.Minute

// streamRoadmap upgrades to a websocket, reads one generation request and
// streams every hours-solver pass followed by the stored result.
func (h *handlers) streamRoadmap(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(h.origins) == 0 || (len(h.origins) == 1 && h.origins[0] == "*") {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	_, raw, err := conn.Read(ctx)
	if err != nil {
		slog.Debug("stream closed before request", "error", err)
		return
	}

	var writeErr error
	rec, err := h.svc.Generate(ctx, raw, func(step roadmap.SolverStep) {
		if writeErr != nil {
			return
		}
		writeErr = wsjson.Write(ctx, conn, StreamMessage{Type: StreamSolverStep, Step: &step})
	})
	if writeErr != nil {
		slog.Warn("stream write failed", "error", writeErr)
		return
	}

	msg := StreamMessage{Type: StreamResult, Roadmap: rec}
	if err != nil {
		status, body := classify(err)
		if status == http.StatusInternalServerError {
			slog.Error("stream generation failed", "error", err)
		}
		msg = StreamMessage{Type: StreamError, Error: &body}
	}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		slog.Warn("stream write failed", "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
