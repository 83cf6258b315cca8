package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"signature-service/internal/middleware"
	"signature-service/pkg/response"
)

// HandleRegisterTablet issues a short-lived pairing code for the caller's
// workstation. The tablet types the code to redeem it.
func (h *SignatureHandler) HandleRegisterTablet(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	workstationID := middleware.WorkstationID(r.Context())
	if workstationID == "" {
		response.Error(w, http.StatusBadRequest, "Missing workstation identity")
		return
	}

	issued, err := h.pairing.Issue(r.Context(), companyID, workstationID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, issued)
}

// HandlePairingStatus is the workstation's poll while the code is on screen.
func (h *SignatureHandler) HandlePairingStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	status, err := h.pairing.Status(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, status)
}

// HandlePairTablet is called by the tablet itself; it has no credentials
// yet, so this route is public and the code is the proof.
func (h *SignatureHandler) HandlePairTablet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code       string `json:"code"`
		DeviceName string `json:"device_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	creds, err := h.pairing.Redeem(r.Context(), req.Code, req.DeviceName)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, creds)
}

func (h *SignatureHandler) HandleListTablets(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())

	// ?online=true narrows to connected tablet ids only.
	if r.URL.Query().Get("online") == "true" {
		ids, err := h.devices.ListOnline(r.Context(), companyID)
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string][]string{"online": ids})
		return
	}

	tablets, err := h.devices.ListTablets(r.Context(), companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, tablets)
}

// HandleTestTablet sends a synthetic probe over the live connection.
func (h *SignatureHandler) HandleTestTablet(w http.ResponseWriter, r *http.Request) {
	tabletID := chi.URLParam(r, "tabletId")
	reachable, err := h.sessions.TestTablet(r.Context(), middleware.CompanyID(r.Context()), tabletID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"reachable": reachable})
}

func (h *SignatureHandler) HandleRevokeTablet(w http.ResponseWriter, r *http.Request) {
	tabletID := chi.URLParam(r, "tabletId")
	if err := h.devices.Revoke(r.Context(), middleware.CompanyID(r.Context()), tabletID); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "Tablet revoked")
}

func (h *SignatureHandler) HandleUnpairTablet(w http.ResponseWriter, r *http.Request) {
	tabletID := chi.URLParam(r, "tabletId")
	if err := h.devices.Unpair(r.Context(), middleware.CompanyID(r.Context()), tabletID); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, "Tablet unpaired")
}
