package models

// PreviewRow is one normalized row rendered for the paginated preview.
type PreviewRow struct {
	Columns     []string `json:"columns"`
	Validations []Badge  `json:"validations"`
}

// Preview is the on-disk and wire schema for processed/<job_id>/preview.json.
type Preview struct {
	JobID     string                 `json:"job_id"`
	Headers   []string               `json:"headers"`
	Rows      []PreviewRow           `json:"rows"`
	TotalRows int                    `json:"total_rows"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// ApprovalRequest is the POST /approval/{id} body.
type ApprovalRequest struct {
	Approver string `json:"approver" validate:"required"`
	Notes    string `json:"notes,omitempty"`
}

// ApprovalResponse is the POST /approval/{id} response.
type ApprovalResponse struct {
	JobID      string  `json:"job_id"`
	Approved   bool    `json:"approved"`
	ApprovedAt string  `json:"approved_at"`
	Notes      string  `json:"notes,omitempty"`
}

// MetaArtifacts describes the copied files recorded in meta.json.
type MetaArtifacts struct {
	CSV      string   `json:"csv"`
	Preview  string   `json:"preview,omitempty"`
	Incoming []string `json:"incoming"`
}

// MetaModelVersion is the model-registry snapshot recorded in meta.json.
type MetaModelVersion struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Status  ModelStatus `json:"status"`
}

// MetaVersions is the versions block of meta.json.
type MetaVersions struct {
	Model      MetaModelVersion `json:"model"`
	MasterData string           `json:"master_data"`
}

// Meta is the full approved/<date>/<job_id>/meta.json schema.
type Meta struct {
	Job       *Job          `json:"job"`
	Artifacts MetaArtifacts `json:"artifacts"`
	Versions  MetaVersions  `json:"versions"`
}
