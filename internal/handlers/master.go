package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/disruptio/cne-pipeline/internal/master"
	"github.com/disruptio/cne-pipeline/internal/models"
)

var validate = validator.New()

// MasterHandler serves the acronym master-data endpoints of spec §6.
type MasterHandler struct {
	Store *master.Store
}

// List handles GET /master-data/.
func (h *MasterHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.List()
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"items": recs})
}

// Create handles POST /master-data/: body is a MasterRecord, validated
// with go-playground/validator (sigla required).
func (h *MasterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec models.MasterRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(rec); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Store.Upsert(rec); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}
