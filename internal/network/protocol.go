// Package network carries the room to players: a websocket hub for live
// play, REST bridges for actions and room state, and the replay API.
package network

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/clock"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/lightwall"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/magicbox"
	"github.com/MRamiBalles/SalaTrece/server/internal/domain/snake"
	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
)

//go:embed schemas/player_action.schema.json
var playerActionSchema string

const actionSchemaURL = "player_action.schema.json"

// MessageType tags every frame sent to a client.
type MessageType string

const (
	MsgTypeWelcome MessageType = "WELCOME"
	MsgTypeState   MessageType = "STATE"
	MsgTypeEvent   MessageType = "EVENT"
	MsgTypeError   MessageType = "ERROR"
)

// Message is the envelope of every server frame.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

func newMessage(t MessageType, payload interface{}) Message {
	return Message{Type: t, Timestamp: time.Now().UnixMilli(), Payload: payload}
}

// WelcomePayload tells a new client who it is.
type WelcomePayload struct {
	ClientID string `json:"client_id"`
	RoomID   string `json:"room_id"`
}

// ErrorPayload explains a rejected action.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrBadAction wraps malformed or schema-invalid input.
var ErrBadAction = errors.New("network: bad action")

// ErrRateLimited is returned when a client sends faster than allowed.
var ErrRateLimited = errors.New("network: rate limited")

// CompileActionSchema builds the validator for player actions.
func CompileActionSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(actionSchemaURL, strings.NewReader(playerActionSchema)); err != nil {
		return nil, fmt.Errorf("add action schema: %w", err)
	}
	return c.Compile(actionSchemaURL)
}

// DecodeAction validates raw against the action schema and decodes it.
func DecodeAction(schema *jsonschema.Schema, raw []byte) (engine.Action, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return engine.Action{}, fmt.Errorf("%w: %v", ErrBadAction, err)
	}
	if err := schema.Validate(doc); err != nil {
		return engine.Action{}, fmt.Errorf("%w: %v", ErrBadAction, err)
	}
	var a engine.Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return engine.Action{}, fmt.Errorf("%w: %v", ErrBadAction, err)
	}
	return a, nil
}

func outOfRange(err error) bool {
	return errors.Is(err, clock.ErrIndexOutOfRange) ||
		errors.Is(err, lightwall.ErrIndexOutOfRange) ||
		errors.Is(err, magicbox.ErrIndexOutOfRange) ||
		errors.Is(err, snake.ErrIndexOutOfRange)
}

// classify maps an action error to a wire code and an HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, ErrBadAction):
		return "BAD_ACTION", http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED", http.StatusTooManyRequests
	case errors.Is(err, engine.ErrInboxFull):
		return "BUSY", http.StatusTooManyRequests
	case errors.Is(err, engine.ErrUnknownPuzzle):
		return "UNKNOWN_PUZZLE", http.StatusNotFound
	case errors.Is(err, engine.ErrPuzzleLocked):
		return "PUZZLE_LOCKED", http.StatusConflict
	case errors.Is(err, engine.ErrNoActivePuzzle):
		return "NO_ACTIVE_PUZZLE", http.StatusConflict
	case errors.Is(err, engine.ErrInvalidAction):
		return "INVALID_ACTION", http.StatusBadRequest
	case outOfRange(err):
		return "OUT_OF_RANGE", http.StatusBadRequest
	case errors.Is(err, engine.ErrEngineStopped):
		return "STOPPED", http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT", http.StatusGatewayTimeout
	}
	return "INTERNAL", http.StatusInternalServerError
}

func errorMessage(err error) Message {
	code, _ := classify(err)
	return newMessage(MsgTypeError, ErrorPayload{Code: code, Message: err.Error()})
}
