package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON shape of every REST reply. Status is "success" or
// "error"; Data carries the payload on success, Message the reason on error.
// Binary image downloads bypass the envelope and are written raw.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON writes a success envelope with the given HTTP status.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{Status: "success", Data: data})
}

// Error writes an error envelope with the given HTTP status.
func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Status: "error", Message: msg})
}

func write(w http.ResponseWriter, status int, e Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}
