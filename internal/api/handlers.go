package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/cognee"
	"github.com/cognee-ai/cognee-go/internal/types"
)

type addRequest struct {
	Dataset string   `json:"dataset"`
	Items   []string `json:"items"`
}

type cognifyRequest struct {
	Datasets []string `json:"datasets"`
}

type memifyRequest struct {
	Dataset string `json:"dataset"`
}

type searchRequest struct {
	Query    string   `json:"query"`
	Type     string   `json:"type"`
	Datasets []string `json:"datasets"`
}

type grantRequest struct {
	DatasetID  string `json:"dataset_id"`
	Permission string `json:"permission"`
}

type createTenantRequest struct {
	Name string `json:"name"`
}

type createRoleRequest struct {
	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

type statusResponse struct {
	Dataset  string        `json:"dataset"`
	Pipeline string        `json:"pipeline"`
	Run      *pipelineView `json:"run"`
}

// pipelineView is the wire shape of a run record.
type pipelineView struct {
	ID       types.ID `json:"id"`
	Status   string   `json:"status"`
	Error    string   `json:"error,omitempty"`
	Created  string   `json:"created_at"`
	Finished string   `json:"finished_at,omitempty"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return types.WrapError(types.ErrCodeValidation, "invalid request body", err)
	}
	return nil
}

func principal(r *http.Request) (*accesscontrol.User, error) {
	user, ok := PrincipalFromContext(r.Context())
	if !ok {
		return nil, types.NewError(types.ErrCodeInternal, "no principal on request context")
	}
	return user, nil
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.svc.Add(r.Context(), user.ID, req.Dataset, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCognify(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req cognifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	report, err := s.svc.Cognify(r.Context(), user.ID, req.Datasets)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMemify(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req memifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.svc.Memify(r.Context(), user.ID, req.Dataset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req searchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	searchType := cognee.SearchType(req.Type)
	if req.Type == "" {
		searchType = cognee.SearchTypeChunks
	}

	result, err := s.svc.Search(r.Context(), user.ID, req.Query, searchType, req.Datasets)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	datasetName := r.URL.Query().Get("dataset")
	if datasetName == "" {
		writeError(w, types.NewError(types.ErrCodeValidation, "dataset query parameter is required"))
		return
	}
	pipelineName := r.URL.Query().Get("pipeline")
	if pipelineName == "" {
		pipelineName = cognee.PipelineCognify
	}

	run, err := s.svc.Status(r.Context(), user.ID, datasetName, pipelineName)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := statusResponse{Dataset: datasetName, Pipeline: pipelineName}
	if run != nil {
		view := &pipelineView{
			ID:      run.ID,
			Status:  string(run.Status),
			Error:   run.Error,
			Created: run.CreatedAt.Format(time.RFC3339),
		}
		if run.FinishedAt != nil {
			view.Finished = run.FinishedAt.Format(time.RFC3339)
		}
		resp.Run = view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	datasetID, err := types.ParseID(chi.URLParam(r, "datasetID"))
	if err != nil {
		writeError(w, types.WrapError(types.ErrCodeValidation, "invalid dataset id", err))
		return
	}

	if err := s.svc.DeleteDataset(r.Context(), user.ID, datasetID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": datasetID.String()})
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	principalID, err := types.ParseID(chi.URLParam(r, "principalID"))
	if err != nil {
		writeError(w, types.WrapError(types.ErrCodeValidation, "invalid principal id", err))
		return
	}
	var req grantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	datasetID, err := types.ParseID(req.DatasetID)
	if err != nil {
		writeError(w, types.WrapError(types.ErrCodeValidation, "invalid dataset id", err))
		return
	}

	perm := accesscontrol.Permission(req.Permission)
	if err := s.svc.ACL().GivePermission(r.Context(), user.ID, principalID, datasetID, perm); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"principal_id": principalID.String(),
		"dataset_id":   datasetID.String(),
		"permission":   req.Permission,
	})
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := s.svc.ACL().Store().CreateTenant(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tenantID, err := types.ParseID(req.TenantID)
	if err != nil {
		writeError(w, types.WrapError(types.ErrCodeValidation, "invalid tenant id", err))
		return
	}

	role, err := s.svc.ACL().Store().CreateRole(r.Context(), req.Name, tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, types.WrapError(types.ErrCodeValidation, "invalid user id", err))
		return
	}
	var req assignRoleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	roleID, err := types.ParseID(req.RoleID)
	if err != nil {
		writeError(w, types.WrapError(types.ErrCodeValidation, "invalid role id", err))
		return
	}

	if err := s.svc.ACL().Store().AddUserToRole(r.Context(), userID, roleID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": userID.String(),
		"role_id": roleID.String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
