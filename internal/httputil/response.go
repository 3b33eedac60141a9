package httputil

import (
	"encoding/json"
	"net/http"
)

// Envelope status values
const (
	StatusSuccess  = "1"
	StatusFail     = "0"
	StatusNotFound = "-2"
)

// Envelope wraps every JSON response body
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   bool        `json:"error"`
	Data    interface{} `json:"data"`
}

// emptyData is sent as data on failures
var emptyData = struct{}{}

// RespondJSON writes a JSON response with the given status code.
// It marshals first so an encoding failure never leaves a partial body.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondSuccess writes a success envelope carrying data
func RespondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	if data == nil {
		data = emptyData
	}
	RespondJSON(w, status, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Error:   false,
		Data:    data,
	})
}

// RespondError writes a failure envelope. 404 uses the not-found status.
func RespondError(w http.ResponseWriter, status int, message string) {
	envelopeStatus := StatusFail
	if status == http.StatusNotFound {
		envelopeStatus = StatusNotFound
	}

	payload, err := json.Marshal(Envelope{
		Status:  envelopeStatus,
		Message: message,
		Error:   true,
		Data:    emptyData,
	})
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
