package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/server/auth"
	"github.com/carebridge/sharelink/internal/server/models"
	"github.com/carebridge/sharelink/internal/server/services"
)

type ctxKey string

const actorKey ctxKey = "actor"

// requireProvider authenticates the provider API with a bearer token and
// stashes the verified actor in the request context.
func (s *Server) requireProvider(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(ctx, w, common.ErrInvalidToken)
			return
		}

		providerID, providerName, err := auth.ProviderFromToken(token, s.jwtSecret)
		if err != nil {
			s.writeError(ctx, w, err)
			return
		}

		actor := services.Actor{ID: providerID, Name: providerName}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, actorKey, actor)))
	})
}

func actorFrom(ctx context.Context) services.Actor {
	actor, _ := ctx.Value(actorKey).(services.Actor)
	return actor
}

type issueRequest struct {
	SubjectID    string   `json:"subjectId"`
	SubjectName  string   `json:"subjectName"`
	SubjectPhone string   `json:"subjectPhone"`
	SubjectEmail string   `json:"subjectEmail"`
	DocumentIDs  []string `json:"documentIds"`
	ExpiryDays   int      `json:"expiryDays"`
	Label        string   `json:"label"`
}

type issueResponse struct {
	LinkID      string    `json:"id"`
	Link        string    `json:"link"`
	ManifestURL string    `json:"manifestUrl"`
	Key         string    `json:"key"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Label       string    `json:"label,omitempty"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(ctx, w, fmt.Errorf("%w: malformed request body", common.ErrorValidation))
		return
	}

	issued, err := s.issuer.Issue(ctx, actorFrom(ctx), &services.IssueRequest{
		SubjectID:    req.SubjectID,
		SubjectName:  req.SubjectName,
		SubjectPhone: req.SubjectPhone,
		SubjectEmail: req.SubjectEmail,
		DocumentIDs:  req.DocumentIDs,
		ExpiryDays:   req.ExpiryDays,
		Label:        req.Label,
	})
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	linksIssued.Inc()
	s.writeJSON(ctx, w, http.StatusCreated, issueResponse{
		LinkID:      issued.LinkID,
		Link:        issued.Payload,
		ManifestURL: issued.ManifestURL,
		Key:         base64.RawURLEncoding.EncodeToString(issued.Key),
		ExpiresAt:   issued.ExpiresAt,
		Label:       issued.Label,
	})
}

type linkResponse struct {
	ID             string     `json:"id"`
	SubjectID      string     `json:"subjectId"`
	SubjectName    string     `json:"subjectName,omitempty"`
	Label          string     `json:"label,omitempty"`
	State          string     `json:"state"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
	AccessCount    int64      `json:"accessCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID := r.URL.Query().Get("subject")
	if subjectID == "" {
		s.writeError(ctx, w, fmt.Errorf("%w: subject query parameter required", common.ErrorValidation))
		return
	}

	statuses, err := s.admin.List(ctx, subjectID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	result := make([]linkResponse, 0, len(statuses))
	for _, st := range statuses {
		result = append(result, linkResponse{
			ID:             st.Link.ID,
			SubjectID:      st.Link.SubjectID,
			SubjectName:    st.Link.SubjectName,
			Label:          st.Link.Label,
			State:          string(st.State),
			CreatedAt:      st.Link.CreatedAt,
			ExpiresAt:      st.Link.ExpiresAt,
			RevokedAt:      st.Link.RevokedAt,
			AccessCount:    st.Link.AccessCount,
			LastAccessedAt: st.Link.LastAccessedAt,
		})
	}
	s.writeJSON(ctx, w, http.StatusOK, result)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.admin.Revoke(ctx, mux.Vars(r)["id"], actorFrom(ctx)); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	linksRevoked.Inc()
	s.writeJSON(ctx, w, http.StatusOK, map[string]string{"state": string(models.LinkStateRevoked)})
}

type eventResponse struct {
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	RemoteAddr string            `json:"remoteAddr,omitempty"`
	UserAgent  string            `json:"userAgent,omitempty"`
	Location   string            `json:"location,omitempty"`
	Recipient  string            `json:"recipient,omitempty"`
	ActorID    string            `json:"actorId,omitempty"`
	ActorName  string            `json:"actorName,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := s.admin.History(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	result := make([]eventResponse, 0, len(history))
	for _, ev := range history {
		result = append(result, eventResponse{
			Type:       string(ev.Type),
			OccurredAt: ev.OccurredAt,
			RemoteAddr: ev.RemoteAddr,
			UserAgent:  ev.UserAgent,
			Location:   ev.Location,
			Recipient:  ev.Recipient,
			ActorID:    ev.ActorID,
			ActorName:  ev.ActorName,
			Detail:     ev.Detail,
		})
	}
	s.writeJSON(ctx, w, http.StatusOK, result)
}
