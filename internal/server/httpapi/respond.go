package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge/sharelink/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(ctx, "response encoding error", "error", err.Error())
	}
}

// writeError maps service errors onto the HTTP surface. Unknown and
// malformed link ids both land on the same 404 body; revoked and expired
// links answer 410 with the state as the discriminant.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		s.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrInvalidToken):
		s.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrorNotFound):
		s.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrorLinkRevoked):
		s.writeJSON(ctx, w, http.StatusGone, errorResponse{Error: "revoked"})
	case errors.Is(err, common.ErrorLinkExpired):
		s.writeJSON(ctx, w, http.StatusGone, errorResponse{Error: "expired"})
	case errors.Is(err, common.ErrorAlreadyRevoked):
		s.writeJSON(ctx, w, http.StatusConflict, errorResponse{Error: "already revoked"})
	case errors.Is(err, common.ErrorCollaborator):
		s.logger.Error(ctx, "collaborator error", "error", err.Error())
		s.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{Error: "upstream error"})
	default:
		s.logger.Error(ctx, "internal error", "error", err.Error())
		s.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
