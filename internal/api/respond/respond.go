// Package respond writes the API's uniform JSON envelopes. Success bodies
// are {"success": true, ...}; failures are {"success": false, "message": ...}
// with error detail included only outside production.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Data writes a success envelope carrying a payload.
func Data(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// Message writes a success envelope with no payload.
func Message(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

// Error writes a failure envelope and logs it: 5xx at error level, 4xx at
// warn. err detail is exposed in the body only when env is not production.
func Error(w http.ResponseWriter, r *http.Request, status int, message string, err error, env string) {
	body := envelope{Success: false, Message: message}
	if err != nil && env != "production" {
		body.Error = err.Error()
	}

	if r != nil && err != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= 500 {
			event = logger.Error()
		}
		event.Err(err).
			Int("status", status).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(message)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Something went wrong!"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
