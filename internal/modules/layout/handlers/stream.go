package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/coffersys/coffer/internal/modules/layout"
)

const streamRequestTimeout = 30 * time.Second

// progressFrame is one per-generation update on the stream
type progressFrame struct {
	Iteration   int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	BestFitness float64 `json:"best_fitness"`
}

// doneFrame closes the stream with the final result
type doneFrame struct {
	Done  bool                `json:"done"`
	RunID string              `json:"run_id"`
	Data  layout.LayoutResult `json:"data"`
}

// errorFrame reports a failed optimization over the stream
type errorFrame struct {
	Error string `json:"error"`
}

// HandleOptimizeStream handles GET /api/layout/optimize/stream. The client
// sends a single LayoutRequest message; the server answers with one progress
// frame per generation followed by a done frame carrying the final result.
// A disconnected client does not abort the optimization; the run completes
// and is persisted, only the remaining frames are dropped.
func (h *Handler) HandleOptimizeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	var req layout.LayoutRequest
	readCtx, cancel := context.WithTimeout(ctx, streamRequestTimeout)
	defer cancel()
	if err := wsjson.Read(readCtx, conn, &req); err != nil {
		h.log.Debug().Err(err).Msg("WebSocket request read failed")
		conn.Close(websocket.StatusPolicyViolation, "expected a layout request")
		return
	}

	// The hook runs on the pool worker executing this optimization while
	// this goroutine blocks in OptimizeWithProgress, so writes never race.
	writeFailed := false
	hook := func(iteration int, temperature, bestFitness float64) {
		if writeFailed {
			return
		}
		frame := progressFrame{
			Iteration:   iteration,
			Temperature: temperature,
			BestFitness: bestFitness,
		}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			writeFailed = true
		}
	}

	run, err := h.service.OptimizeWithProgress(req, hook)
	if err != nil {
		_ = wsjson.Write(ctx, conn, errorFrame{Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "optimization failed")
		return
	}

	if err := wsjson.Write(ctx, conn, doneFrame{Done: true, RunID: run.ID, Data: run.Result}); err != nil {
		h.log.Debug().Err(err).Str("run_id", run.ID).Msg("Client gone before final frame")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
