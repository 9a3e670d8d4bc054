// Package render is the last step of a page operation: it writes already
// filtered, already localized data to the response.
package render

import (
	"encoding/json"
	"net/http"
)

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a {"error": msg} body with status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// NotFound writes the standard not-found response.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "not found")
}
