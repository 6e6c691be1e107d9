package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/comorbid-index-engine/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API is deployed behind the gateway, which enforces origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is one frame on the score stream. Type is "patient" while
// results are flowing, then a single "done" frame carries the run summary,
// or an "error" frame ends the stream early.
type streamMessage struct {
	Type    string                `json:"type"`
	Patient *engine.PatientResult `json:"patient,omitempty"`
	Result  *engine.Result        `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// handleScoreStream upgrades to a websocket, reads one score request, and
// streams per-patient results as the engine produces them. The final frame
// repeats the run summary with the patient list omitted.
func (s *Server) handleScoreStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req scoreRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(streamMessage{Type: "error", Error: "invalid score request: " + err.Error()})
		return
	}

	pipeline, err := engine.New(req.options(), s.logger)
	if err != nil {
		conn.WriteJSON(streamMessage{Type: "error", Error: err.Error()})
		return
	}

	// Shards emit concurrently; gorilla permits one writer at a time.
	var mu sync.Mutex
	emit := func(p engine.PatientResult) {
		mu.Lock()
		defer mu.Unlock()
		conn.WriteJSON(streamMessage{Type: "patient", Patient: &p})
	}

	result, err := pipeline.RunFunc(c.Request.Context(), req.input(), emit)
	if err != nil {
		mu.Lock()
		conn.WriteJSON(streamMessage{Type: "error", Error: err.Error()})
		mu.Unlock()
		return
	}

	if s.store != nil {
		if err := s.store.SaveRun(c.Request.Context(), result); err != nil {
			s.logger.WithError(err).Error("Failed to persist streamed run")
		}
	}

	summary := *result
	summary.Patients = nil

	mu.Lock()
	conn.WriteJSON(streamMessage{Type: "done", Result: &summary})
	mu.Unlock()
}
