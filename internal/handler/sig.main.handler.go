package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"signature-service/internal/service/artifact"
	"signature-service/internal/service/pairing"
	"signature-service/internal/usecase"
	"signature-service/pkg/response"
	xerrors "signature-service/pkg/xerrors"
)

type SignatureHandler struct {
	pairing   *pairing.Service
	sessions  *usecase.SessionUsecase
	devices   *usecase.DeviceUsecase
	artifacts artifact.Store
}

func NewSignatureHandler(
	pairingSvc *pairing.Service,
	sessions *usecase.SessionUsecase,
	devices *usecase.DeviceUsecase,
	artifacts artifact.Store,
) *SignatureHandler {
	return &SignatureHandler{
		pairing:   pairingSvc,
		sessions:  sessions,
		devices:   devices,
		artifacts: artifacts,
	}
}

func (h *SignatureHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return xerrors.ErrInvalidRequest
	}
	return nil
}

// writeError maps the usecase error taxonomy onto HTTP statuses. Unknown
// errors stay opaque to the caller.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidRequest),
		errors.Is(err, xerrors.ErrInvalidOrExpiredCode),
		errors.Is(err, xerrors.ErrDeviceNameRequired),
		errors.Is(err, xerrors.ErrInvalidTimeout):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrInvalidToken), errors.Is(err, xerrors.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, xerrors.ErrAccessDenied),
		errors.Is(err, xerrors.ErrDeviceRevoked),
		errors.Is(err, xerrors.ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xerrors.ErrDeviceNotFound),
		errors.Is(err, xerrors.ErrSessionNotFound),
		errors.Is(err, xerrors.ErrArtifactNotFound),
		errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrWorkstationBusy),
		errors.Is(err, xerrors.ErrSessionNotSignable),
		errors.Is(err, xerrors.ErrSessionNotCancellable),
		errors.Is(err, xerrors.ErrTabletOffline):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrInvalidSignaturePayload):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
