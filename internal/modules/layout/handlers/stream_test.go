package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/coffersys/coffer/internal/modules/layout"
)

func dialStream(t *testing.T, ctx context.Context, serverURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/layout/optimize/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestHandleOptimizeStream(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn := dialStream(t, ctx, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, layout.LayoutRequest{
		CeilingLengthMM: 4800,
		CeilingWidthMM:  3600,
	}))

	var progress []map[string]interface{}
	var done map[string]interface{}
	for {
		var frame map[string]interface{}
		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		if d, ok := frame["done"].(bool); ok && d {
			done = frame
			break
		}
		progress = append(progress, frame)
	}

	require.NotEmpty(t, progress)
	assert.Equal(t, float64(1), progress[0]["iteration"])
	assert.Greater(t, progress[0]["temperature"].(float64), 0.0)

	last := progress[len(progress)-1]
	assert.Equal(t, float64(len(progress)), last["iteration"], "one frame per generation")

	require.NotNil(t, done)
	assert.NotEmpty(t, done["run_id"])

	data := done["data"].(map[string]interface{})
	assert.Greater(t, data["total_panels"].(float64), 0.0)
	assert.Equal(t, float64(len(progress)), data["optimization_iterations"])
	assert.Equal(t, data["fitness"], last["best_fitness"])
}

func TestHandleOptimizeStreamRejectsBadRequest(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := dialStream(t, ctx, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))

	var frame map[string]interface{}
	err := wsjson.Read(ctx, conn, &frame)
	assert.Error(t, err, "server closes the stream on a malformed request")
}

func TestHandleOptimizeStreamReportsOptimizationError(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := dialStream(t, ctx, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, layout.LayoutRequest{
		CeilingLengthMM: 0,
		CeilingWidthMM:  3600,
	}))

	var frame map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Contains(t, frame["error"], "invalid ceiling dimensions")
}
