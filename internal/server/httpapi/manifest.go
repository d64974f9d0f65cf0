package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/server/services"
)

type manifestRequest struct {
	// Recipient is the accessor's self-declared identity; recorded in the
	// audit trail verbatim, trusted for nothing.
	Recipient string `json:"recipient"`
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The body is optional and best-effort; a garbled one never fails the
	// request.
	var req manifestRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	accessor := services.AccessorContext{
		RemoteAddr: clientIP(r),
		UserAgent:  r.UserAgent(),
		Recipient:  req.Recipient,
	}

	manifest, err := s.manifests.Resolve(ctx, mux.Vars(r)["id"], accessor)
	if err != nil {
		manifestRequests.WithLabelValues(manifestOutcome(err)).Inc()
		s.writeError(ctx, w, err)
		return
	}

	manifestRequests.WithLabelValues("ok").Inc()
	s.writeJSON(ctx, w, http.StatusOK, manifest)
}

func manifestOutcome(err error) string {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrorLinkRevoked):
		return "revoked"
	case errors.Is(err, common.ErrorLinkExpired):
		return "expired"
	default:
		return "error"
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
