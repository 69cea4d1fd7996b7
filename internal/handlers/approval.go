package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/disruptio/cne-pipeline/internal/models"
)

// ApprovalHandler adapts JobHandler.Approve to the HTTP layer, validating
// the request body with go-playground/validator (approver required).
type ApprovalHandler struct {
	Jobs *JobHandler
}

// Approve handles POST /approval/{id}.
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request, id string) {
	var req models.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.Jobs.Approve(id, req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}
