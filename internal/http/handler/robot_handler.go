package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/DavidFlautero/felxeasy/internal/http/response"
	"github.com/DavidFlautero/felxeasy/internal/observability"
	"github.com/DavidFlautero/felxeasy/internal/repository"
	"github.com/DavidFlautero/felxeasy/internal/service"
)

// RobotHandler serves the worker-facing relay routes: register, status
// pings with attached captures, block reports and the command slot.
type RobotHandler struct {
	relaySvc service.RelayService
}

func NewRobotHandler(relaySvc service.RelayService) *RobotHandler {
	return &RobotHandler{relaySvc: relaySvc}
}

type registerRequest struct {
	UserID string `json:"user_id"`
}

type statusRequest struct {
	UserID         string                `json:"user_id"`
	Status         string                `json:"status"`
	Metrics        json.RawMessage       `json:"metrics,omitempty"`
	CapturedBlocks []service.BlockReport `json:"captured_blocks,omitempty"`
}

type blockReportRequest struct {
	UserID string `json:"user_id"`
	service.BlockReport
}

type enqueueRequest struct {
	UserID     string          `json:"user_id"`
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

func (h *RobotHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordRelayOperation(r.Context(), "register", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		observability.RecordRelayOperation(r.Context(), "register", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	session, err := h.relaySvc.Register(r.Context(), userID)
	if err != nil {
		observability.RecordRelayOperation(r.Context(), "register", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to register session", nil)
		return
	}
	observability.RecordRelayOperation(r.Context(), "register", "success")
	response.JSON(w, r, http.StatusOK, session)
}

func (h *RobotHandler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordRelayOperation(r.Context(), "status", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		observability.RecordRelayOperation(r.Context(), "status", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	err := h.relaySvc.ReportStatus(r.Context(), userID, req.Status, req.Metrics, req.CapturedBlocks)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			observability.RecordRelayOperation(r.Context(), "status", "not_found")
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
		case errors.Is(err, service.ErrInvalidStatus):
			observability.RecordRelayOperation(r.Context(), "status", "bad_request")
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid status value", nil)
		default:
			observability.RecordRelayOperation(r.Context(), "status", "error")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update session", nil)
		}
		return
	}
	observability.RecordRelayOperation(r.Context(), "status", "success")
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *RobotHandler) ReportBlocks(w http.ResponseWriter, r *http.Request) {
	var req blockReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordRelayOperation(r.Context(), "blocks", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		observability.RecordRelayOperation(r.Context(), "blocks", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	if err := h.relaySvc.RecordBlocks(r.Context(), userID, []service.BlockReport{req.BlockReport}); err != nil {
		observability.RecordRelayOperation(r.Context(), "blocks", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to record block", nil)
		return
	}
	observability.RecordRelayOperation(r.Context(), "blocks", "success")
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *RobotHandler) PollCommands(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		observability.RecordRelayOperation(r.Context(), "drain", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	commands, err := h.relaySvc.Drain(r.Context(), userID)
	if err != nil {
		observability.RecordRelayOperation(r.Context(), "drain", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to read command slot", nil)
		return
	}
	observability.RecordRelayOperation(r.Context(), "drain", "success")
	response.JSON(w, r, http.StatusOK, map[string]interface{}{"commands": commands})
}

func (h *RobotHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordRelayOperation(r.Context(), "enqueue", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	command := strings.TrimSpace(req.Command)
	if userID == "" || command == "" {
		observability.RecordRelayOperation(r.Context(), "enqueue", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id and command are required", nil)
		return
	}

	if err := h.relaySvc.Enqueue(r.Context(), userID, command, req.Parameters); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordRelayOperation(r.Context(), "enqueue", "not_found")
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
			return
		}
		observability.RecordRelayOperation(r.Context(), "enqueue", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to enqueue command", nil)
		return
	}
	observability.RecordRelayOperation(r.Context(), "enqueue", "success")
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *RobotHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		observability.RecordRelayOperation(r.Context(), "session", "bad_request")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	session, err := h.relaySvc.Session(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordRelayOperation(r.Context(), "session", "not_found")
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
			return
		}
		observability.RecordRelayOperation(r.Context(), "session", "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load session", nil)
		return
	}
	observability.RecordRelayOperation(r.Context(), "session", "success")
	response.JSON(w, r, http.StatusOK, session)
}
