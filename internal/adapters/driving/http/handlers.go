package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/domain"
	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
)

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Code:    status,
		Message: "success",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Code:    status,
		Message: message,
	})
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrSearchBackend):
		writeError(w, http.StatusBadGateway, "search backend unavailable")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	healthy := true

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			components["database"] = "down"
			healthy = false
		} else {
			components["database"] = "up"
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			components["task_queue"] = "down"
			healthy = false
		} else {
			components["task_queue"] = "up"
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     state,
		"version":    s.version,
		"components": components,
	})
}

func (s *Server) handleBackendStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.documentService.BackendStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// searchRequest carries the search parameters. Optional numeric fields
// are pointers so that absent values fall back to defaults. The legacy
// "query" key is accepted as the content query.
type searchRequest struct {
	SearchMode     string   `json:"search_mode"`
	QueryContent   string   `json:"query_content"`
	LegacyQuery    string   `json:"query"`
	QueryMetadata  string   `json:"query_metadata"`
	TopK           *int     `json:"top_k"`
	TextStandard   *float64 `json:"text_standard"`
	TextNgram      *float64 `json:"text_ngram"`
	VectorWeight   *float64 `json:"vector_weight"`
	MetadataWeight *float64 `json:"metadata_weight"`
	Fuzziness      *string  `json:"fuzziness"`
	AmountMin      *float64 `json:"min_amount"`
	AmountMax      *float64 `json:"max_amount"`
	DateStart      string   `json:"date_start"`
	DateEnd        string   `json:"date_end"`
}

func (req *searchRequest) toParams() domain.SearchParams {
	params := domain.DefaultSearchParams()
	if req.SearchMode != "" {
		params.Mode = domain.SearchMode(req.SearchMode)
	}
	params.QueryText = req.QueryContent
	if params.QueryText == "" {
		params.QueryText = req.LegacyQuery
	}
	params.QueryMetadata = req.QueryMetadata
	if req.TopK != nil {
		params.TopK = *req.TopK
	}
	if req.TextStandard != nil {
		params.TextStandardWeight = *req.TextStandard
	}
	if req.TextNgram != nil {
		params.TextNgramWeight = *req.TextNgram
	}
	if req.VectorWeight != nil {
		params.VectorWeight = *req.VectorWeight
	}
	if req.MetadataWeight != nil {
		params.MetadataWeight = *req.MetadataWeight
	}
	if req.Fuzziness != nil {
		params.Fuzziness = domain.Fuzziness(*req.Fuzziness)
	}
	params.AmountMin = req.AmountMin
	params.AmountMax = req.AmountMax
	params.DateStart = req.DateStart
	params.DateEnd = req.DateEnd
	return params
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.searchService.Search(r.Context(), req.toParams())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data := map[string]any{
		"search_mode": result.Mode,
		"took_ms":     result.Took.Milliseconds(),
	}
	if result.Mode == domain.SearchModeHybrid {
		data["merged_results"] = result.Merged
		data["total"] = len(result.Merged)
	} else {
		data["results"] = result.Pages
		data["total"] = len(result.Pages)
	}
	writeJSON(w, http.StatusOK, data)
}

// addDocumentRequest carries pre-extracted page text for one contract.
type addDocumentRequest struct {
	FileName string              `json:"file_name"`
	Pages    []driving.PageInput `json:"pages"`
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req addDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	uploadID, err := s.ingestService.Ingest(r.Context(), req.FileName, req.Pages)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upload_id":     uploadID,
		"contract_name": domain.ContractNameFromFile(req.FileName),
		"page_count":    len(req.Pages),
	})
}

func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ingestService.UploadStatus(r.Context(), r.PathValue("uploadID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upload_id":      rec.UploadID,
		"contract_name":  rec.ContractName,
		"file_name":      rec.FileName,
		"status":         rec.Status,
		"status_display": rec.Status.Display(),
		"error":          rec.Error,
		"page_count":     rec.PageCount,
		"created_at":     rec.CreatedAt,
		"updated_at":     rec.UpdatedAt,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	list, err := s.documentService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": list,
		"total":     len(list),
	})
}

func (s *Server) handleDocumentDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.documentService.Detail(r.Context(), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	s.deleteContract(w, r, r.PathValue("name"))
}

// handleDeleteByQuery is the legacy deletion route: the contract is
// named by a filename query parameter, extension included.
func (s *Server) handleDeleteByQuery(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("filename")
	if fileName == "" {
		writeError(w, http.StatusBadRequest, "filename parameter is required")
		return
	}
	s.deleteContract(w, r, domain.ContractNameFromFile(fileName))
}

func (s *Server) deleteContract(w http.ResponseWriter, r *http.Request, contractName string) {
	deleted, err := s.documentService.Delete(r.Context(), contractName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract_name": contractName,
		"deleted_pages": deleted,
	})
}

func (s *Server) handleClearIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.documentService.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type extractMetadataRequest struct {
	ContractName string `json:"contract_name"`
}

func (s *Server) handleExtractMetadata(w http.ResponseWriter, r *http.Request) {
	var req extractMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta, err := s.metadataService.Extract(r.Context(), req.ContractName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract_name":     req.ContractName,
		"document_metadata": meta,
		"extracted_at":      meta.ExtractedAt.Format(time.RFC3339),
	})
}

type saveMetadataRequest struct {
	ContractName string                   `json:"contract_name"`
	Metadata     *domain.ContractMetadata `json:"document_metadata"`
}

func (s *Server) handleSaveMetadata(w http.ResponseWriter, r *http.Request) {
	var req saveMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Metadata == nil {
		writeError(w, http.StatusBadRequest, "document_metadata is required")
		return
	}

	if err := s.metadataService.Save(r.Context(), req.ContractName, req.Metadata); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract_name": req.ContractName,
		"status":        "saved",
	})
}
