package network

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
)

// ActorHeader names the player behind a REST action.
const ActorHeader = "X-Actor-ID"

// ActionBridge lets clients without a websocket play through plain HTTP.
type ActionBridge struct {
	room   Room
	schema *jsonschema.Schema
	logger *logger.Logger
}

func NewActionBridge(room Room, schema *jsonschema.Schema, log *logger.Logger) *ActionBridge {
	return &ActionBridge{room: room, schema: schema, logger: log}
}

// HandleAction applies one player action and answers with the room state.
// POST /api/actions
func (ab *ActionBridge) HandleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize+1))
	if err != nil || len(body) > maxMessageSize {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	action, err := DecodeAction(ab.schema, body)
	if err == nil {
		action.ActorID = r.Header.Get(ActorHeader)
		if action.ActorID == "" {
			action.ActorID = "rest"
		}
		err = ab.room.Submit(r.Context(), action)
	}
	if err != nil {
		code, status := classify(err)
		ab.logger.Info("rest action rejected", zap.String("code", code), zap.Error(err))
		jsonResponse(w, status, ErrorPayload{Code: code, Message: err.Error()})
		return
	}
	jsonSuccess(w, map[string]interface{}{
		"accepted": true,
		"room":     ab.room.Snapshot(),
	})
}

// HandleRoom returns the published room state.
// GET /api/room
func (ab *ActionBridge) HandleRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, ab.room.Snapshot())
}

// RegisterRoutes sets up the action API routes.
func (ab *ActionBridge) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/actions", ab.HandleAction)
	mux.HandleFunc("/api/room", ab.HandleRoom)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	jsonResponse(w, http.StatusOK, data)
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
