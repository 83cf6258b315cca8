package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"signature-service/internal/domain"
	"signature-service/internal/middleware"
	"signature-service/pkg/response"
	xerrors "signature-service/pkg/xerrors"
)

// HandleCreateSession starts a signature capture session and pushes the
// request to the tablet before answering.
func (h *SignatureHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TabletID       string `json:"tablet_id"`
		WorkstationID  string `json:"workstation_id"`
		CustomerName   string `json:"customer_name"`
		VehicleInfo    string `json:"vehicle_info"`
		TimeoutMinutes int    `json:"timeout_minutes"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Prefer the gateway-asserted workstation over the body.
	workstationID := middleware.WorkstationID(r.Context())
	if workstationID == "" {
		workstationID = req.WorkstationID
	}
	if req.TabletID == "" || workstationID == "" || strings.TrimSpace(req.CustomerName) == "" {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}

	session, err := h.sessions.CreateSession(
		r.Context(),
		middleware.CompanyID(r.Context()),
		middleware.UserID(r.Context()),
		workstationID,
		req.TabletID,
		req.CustomerName,
		req.VehicleInfo,
		req.TimeoutMinutes,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]string{
		"session_id": session.ID,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *SignatureHandler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.sessions.GetStatus(r.Context(), middleware.CompanyID(r.Context()), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]interface{}{"status": session.Status}
	if session.SignedAt != nil {
		body["signed_at"] = session.SignedAt.Format(time.RFC3339)
	}
	if session.CancelReason != "" {
		body["cancel_reason"] = session.CancelReason
	}
	if session.ErrorDetails != "" {
		body["error_details"] = session.ErrorDetails
	}
	response.JSON(w, http.StatusOK, body)
}

func (h *SignatureHandler) HandleCancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	var req struct {
		Reason string `json:"reason"`
	}
	// A body is optional on cancel.
	_ = decodeBody(r, &req)

	err := h.sessions.CancelSession(
		r.Context(),
		middleware.CompanyID(r.Context()),
		middleware.UserID(r.Context()),
		sessionID,
		req.Reason,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "Session cancelled")
}

// HandleSubmitSignature is the tablet's REST submission path. The device
// token authenticates the caller; the same usecase serves the socket path.
func (h *SignatureHandler) HandleSubmitSignature(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.AuthenticateToken(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		SessionID      string `json:"session_id"`
		SignatureImage string `json:"signature_image"`
		SignedAt       string `json:"signed_at"`
		DeviceID       string `json:"device_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DeviceID != "" && req.DeviceID != device.ID {
		writeError(w, xerrors.ErrAccessDenied)
		return
	}

	var signedAt time.Time
	if req.SignedAt != "" {
		signedAt, err = time.Parse(time.RFC3339, req.SignedAt)
		if err != nil {
			writeError(w, xerrors.ErrInvalidRequest)
			return
		}
	}

	session, err := h.sessions.SubmitSignature(r.Context(), device.ID, req.SessionID, req.SignatureImage, signedAt)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"signed_at": session.SignedAt.Format(time.RFC3339),
	})
}

// HandleDownloadImage streams the signature image. 404 until the session
// completed and while no artifact is reachable in cache or durable storage.
func (h *SignatureHandler) HandleDownloadImage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.sessions.GetStatus(r.Context(), middleware.CompanyID(r.Context()), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if session.Status != domain.SessionCompleted {
		writeError(w, xerrors.ErrArtifactNotFound)
		return
	}

	imageBytes, err := h.artifacts.Retrieve(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(imageBytes))
	w.WriteHeader(http.StatusOK)
	w.Write(imageBytes)
}

// HandleEvictArtifact drops the cached copy; the durable row stays.
func (h *SignatureHandler) HandleEvictArtifact(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	// Scope check through the session row before touching the cache.
	if _, err := h.sessions.GetStatus(r.Context(), middleware.CompanyID(r.Context()), sessionID); err != nil {
		writeError(w, err)
		return
	}

	evicted, err := h.artifacts.Remove(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"evicted": evicted})
}

func (h *SignatureHandler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.artifacts.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	// ?keys=true adds the cached session ids for admin inspection.
	if r.URL.Query().Get("keys") != "true" {
		response.JSON(w, http.StatusOK, stats)
		return
	}
	keys, err := h.artifacts.ListKeys(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"count":       stats.Count,
		"total_bytes": stats.TotalBytes,
		"keys":        keys,
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
