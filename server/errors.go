package server

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/games"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/run"
	"github.com/Ashenafi-pixel/gamecrafter-rtp-simulator/slot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error codes returned in APIError.Code.
const (
	CodeInvalidBody    = "INVALID_BODY"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeGameNotFound   = "GAME_NOT_FOUND"
	CodeRunNotFound    = "SIMULATION_NOT_FOUND"
	CodeNotFinished    = "SIMULATION_NOT_FINISHED"
	CodeAlreadyStopped = "SIMULATION_FINISHED"
	CodeInternal       = "INTERNAL"
)

// APIError is the standard error response of the simulator API.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	writeJSON(w, code, APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

// writeErr maps domain errors onto status codes.
func writeErr(w http.ResponseWriter, err error) {
	var ce *slot.ConfigError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusBadRequest, APIError{
			Error:   err.Error(),
			Code:    CodeInvalidConfig,
			Message: ce.Reason,
			Field:   ce.Field,
		})
	case errors.Is(err, games.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), CodeGameNotFound)
	case errors.Is(err, run.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), CodeRunNotFound)
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), CodeInternal)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
