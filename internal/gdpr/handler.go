package gdpr

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/gatewayerr"
	"github.com/sovrn-labs/trustedserver/internal/storage"
	"github.com/sovrn-labs/trustedserver/internal/synthetic"
)

// maxConsentBodyBytes bounds a POSTed consent body; the payload is three
// booleans, a timestamp and a version string, never anything larger.
const maxConsentBodyBytes = 1 << 12

// Handler serves the gdpr_consent and data-subject endpoints, backed by
// store for everything the original's Rust handlers left as a TODO.
type Handler struct {
	Store    *storage.Store
	Settings *gateway.Settings
}

// NewHandler builds a Handler bound to store and settings.
func NewHandler(store *storage.Store, settings *gateway.Settings) *Handler {
	return &Handler{Store: store, Settings: settings}
}

// HandleConsent serves GET (read current consent, defaulting to
// DefaultConsent when none is recorded) and POST (record a new consent
// choice, both as a cookie and in the subject's consent history once a
// subject ID is known).
func (h *Handler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		consent, ok := ConsentFromRequest(r)
		if !ok {
			consent = DefaultConsent()
		}
		writeJSON(w, http.StatusOK, consent)

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxConsentBodyBytes))
		if err != nil {
			writeError(w, gatewayerr.BadRequest("reading consent body: %v", err))
			return
		}
		var consent Consent
		if err := json.Unmarshal(body, &consent); err != nil {
			writeError(w, gatewayerr.BadRequest("decoding consent body: %v", err))
			return
		}

		http.SetCookie(w, NewConsentCookie(h.Settings, consent))

		if subjectID := r.Header.Get(HeaderSubjectID); subjectID != "" && h.Store != nil {
			if raw, err := json.Marshal(consent); err == nil {
				_ = h.Store.AppendConsent(r.Context(), subjectID, raw)
			}
		}

		writeJSON(w, http.StatusOK, consent)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleDataSubject serves GET (data-subject access: everything recorded
// for the subject named by the X-Subject-ID header) and DELETE (right to
// erasure: forgets the subject in storage and clears their synthetic_id
// cookie on the response).
func (h *Handler) HandleDataSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := r.Header.Get(HeaderSubjectID)
	if subjectID == "" {
		writeError(w, gatewayerr.BadRequest("missing %s header", HeaderSubjectID))
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, err := h.subjectData(r, subjectID)
		if err != nil {
			writeError(w, gatewayerr.UpstreamFailure("reading subject data", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]SubjectData{subjectID: data})

	case http.MethodDelete:
		if h.Store != nil {
			if err := h.Store.ForgetSubject(r.Context(), subjectID); err != nil {
				writeError(w, gatewayerr.UpstreamFailure("erasing subject data", err))
				return
			}
		}
		http.SetCookie(w, synthetic.ExpiredCookie(h.Settings))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("data deletion request processed"))

	default:
		w.Header().Set("Allow", "GET, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) subjectData(r *http.Request, subjectID string) (SubjectData, error) {
	if h.Store == nil {
		return SubjectData{}, nil
	}

	ctx := r.Context()
	count, err := h.Store.VisitCount(ctx, subjectID)
	if err != nil {
		return SubjectData{}, err
	}
	lastVisit, _, err := h.Store.LastVisit(ctx, subjectID)
	if err != nil {
		return SubjectData{}, err
	}
	interactions, err := h.Store.AdInteractions(ctx, subjectID)
	if err != nil {
		return SubjectData{}, err
	}
	rawHistory, err := h.Store.ConsentHistory(ctx, subjectID)
	if err != nil {
		return SubjectData{}, err
	}

	history := make([]Consent, 0, len(rawHistory))
	for _, raw := range rawHistory {
		var c Consent
		if err := json.Unmarshal(raw, &c); err == nil {
			history = append(history, c)
		}
	}

	return SubjectData{
		VisitCount:     count,
		LastVisit:      lastVisit,
		AdInteractions: interactions,
		ConsentHistory: history,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *gatewayerr.Error) {
	http.Error(w, err.Error(), err.Status())
}
