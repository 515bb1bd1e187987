package pipeline

import (
	"time"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusErrored    RunStatus = "errored"
)

// IsValid checks whether the status is one of the known states.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusQueued, RunStatusProcessing, RunStatusCompleted, RunStatusErrored:
		return true
	}
	return false
}

// IsTerminal reports whether the run has finished, successfully or not.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusErrored
}

// Run is the persisted record of one pipeline execution against one
// dataset. At most one run per (dataset, pipeline name) may be in the
// processing state at a time.
type Run struct {
	ID           types.ID   `json:"id"`
	PipelineName string     `json:"pipeline_name"`
	DatasetID    types.ID   `json:"dataset_id"`
	PrincipalID  types.ID   `json:"principal_id"`
	Status       RunStatus  `json:"status"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewRun creates a queued run for the given pipeline and dataset.
func NewRun(pipelineName string, datasetID, principalID types.ID) *Run {
	now := time.Now()
	return &Run{
		ID:           types.NewID(),
		PipelineName: pipelineName,
		DatasetID:    datasetID,
		PrincipalID:  principalID,
		Status:       RunStatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks run fields before persistence.
func (r *Run) Validate() error {
	if err := r.ID.Validate(); err != nil {
		return types.WrapError(types.ErrCodeValidation, "invalid run ID", err)
	}
	if r.PipelineName == "" {
		return types.NewError(types.ErrCodeValidation, "run pipeline name cannot be empty")
	}
	if err := r.DatasetID.Validate(); err != nil {
		return types.WrapError(types.ErrCodeValidation, "invalid run dataset ID", err)
	}
	if err := r.PrincipalID.Validate(); err != nil {
		return types.WrapError(types.ErrCodeValidation, "invalid run principal ID", err)
	}
	if !r.Status.IsValid() {
		return types.NewError(types.ErrCodeValidation, "invalid run status: "+string(r.Status))
	}
	return nil
}
