// Package handlers implements the HTTP facade of spec §4.12/§6: manual
// net/http handlers over the job store, master registry and model
// registry, wired together by the server package's ServeMux routing.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/disruptio/cne-pipeline/internal/apperr"
)

// WriteJSON writes data as a JSON response with statusCode.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteErrorDetail writes the standard {"detail": message} error body.
func WriteErrorDetail(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]string{"detail": message})
}

// WriteAppError maps an apperr.Error (or generic error) to the standard
// HTTP status/body pairing documented in spec §7.
func WriteAppError(w http.ResponseWriter, err error) {
	switch {
	case apperr.Is(err, apperr.KindNotFound):
		WriteErrorDetail(w, http.StatusNotFound, err.Error())
	case apperr.Is(err, apperr.KindValidation):
		WriteErrorDetail(w, http.StatusBadRequest, err.Error())
	default:
		WriteErrorDetail(w, http.StatusInternalServerError, err.Error())
	}
}
