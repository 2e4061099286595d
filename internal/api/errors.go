package api

import (
	"encoding/json"
	"net/http"

	"backoffice/pkg/remote"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Resynced is set on failed transitions: true when the collection was
	// re-fetched after the failure.
	Resynced *bool `json:"resynced,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, APIError{Code: code, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, e APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{Error: e})
}

// WriteRemoteError maps a remote store failure to an operator response. The
// store's message is passed through verbatim.
func WriteRemoteError(w http.ResponseWriter, err error, resynced *bool) {
	status, code := http.StatusBadGateway, "REMOTE_UNAVAILABLE"
	switch remote.KindOf(err) {
	case remote.KindAuth:
		status, code = http.StatusUnauthorized, "REMOTE_UNAUTHORIZED"
	case remote.KindConflict:
		status, code = http.StatusConflict, "REMOTE_REJECTED"
	case remote.KindShape:
		code = "REMOTE_BAD_RESPONSE"
	case remote.KindNetwork:
		status, code = http.StatusGatewayTimeout, "REMOTE_UNREACHABLE"
	}
	writeEnvelope(w, status, APIError{Code: code, Message: remote.MessageOf(err), Resynced: resynced})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
