package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DavidFlautero/felxeasy/internal/http/response"
	"github.com/DavidFlautero/felxeasy/internal/repository"
	"github.com/DavidFlautero/felxeasy/internal/service"
)

// CaptureHandler serves the dashboard-facing ledger routes.
type CaptureHandler struct {
	captureSvc service.CaptureService
	exportSvc  service.ExportService
}

func NewCaptureHandler(captureSvc service.CaptureService, exportSvc service.ExportService) *CaptureHandler {
	return &CaptureHandler{captureSvc: captureSvc, exportSvc: exportSvc}
}

type capturePage struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

type exportRequest struct {
	UserID string `json:"user_id"`
}

func (h *CaptureHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	page := parseIntQuery(r, "page", repository.DefaultPage)
	pageSize := parseIntQuery(r, "page_size", repository.DefaultPageSize)

	result, err := h.captureSvc.List(r.Context(), userID, repository.PageRequest{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list captures", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, capturePage{
		Items:      result.Items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

func (h *CaptureHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	stats, err := h.captureSvc.Stats(r.Context(), userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to compute capture stats", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, stats)
}

func (h *CaptureHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	url, err := h.exportSvc.Export(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrExportDisabled) {
			response.Error(w, r, http.StatusServiceUnavailable, "EXPORT_DISABLED", "ledger export is not configured", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to export ledger", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"url": url})
}

func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
