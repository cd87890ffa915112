package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes v with the given status. Encoding errors are ignored
// because the header has already been written.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
