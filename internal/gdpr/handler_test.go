package gdpr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/storage"
	"github.com/sovrn-labs/trustedserver/internal/synthetic"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewWithClient(client, "visits", "opid")
	settings := &gateway.Settings{Publisher: gateway.Publisher{CookieDomain: "example.com"}}
	return NewHandler(store, settings)
}

func TestHandleConsentGetDefaultsWhenNoCookie(t *testing.T) {
	h := testHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/gdpr/consent", nil)
	w := httptest.NewRecorder()

	h.HandleConsent(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var consent Consent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&consent))
	assert.False(t, consent.Analytics)
	assert.False(t, consent.Advertising)
	assert.Equal(t, "1.0", consent.Version)
}

func TestHandleConsentPostSetsCookieAndRecordsHistory(t *testing.T) {
	h := testHandler(t)
	body := `{"analytics":true,"advertising":true,"functional":true,"timestamp":1700000000,"version":"1.0"}`
	r := httptest.NewRequest(http.MethodPost, "/gdpr/consent", strings.NewReader(body))
	r.Header.Set(HeaderSubjectID, "subject-1")
	w := httptest.NewRecorder()

	h.HandleConsent(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	setCookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, "gdpr_consent=")
	assert.Contains(t, setCookie, "Domain=example.com")
	assert.Contains(t, setCookie, "Max-Age=31536000")

	history, err := h.Store.ConsentHistory(context.Background(), "subject-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, string(history[0]), `"analytics":true`)
}

func TestHandleDataSubjectGetRequiresSubjectHeader(t *testing.T) {
	h := testHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/gdpr/data", nil)
	w := httptest.NewRecorder()

	h.HandleDataSubject(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDataSubjectGetReturnsRecordedData(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()
	_, err := h.Store.IncrementVisit(ctx, "subject-1")
	require.NoError(t, err)
	require.NoError(t, h.Store.RecordAdInteraction(ctx, "subject-1", "impression:slot-1"))

	r := httptest.NewRequest(http.MethodGet, "/gdpr/data", nil)
	r.Header.Set(HeaderSubjectID, "subject-1")
	w := httptest.NewRecorder()

	h.HandleDataSubject(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]SubjectData
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Contains(t, out, "subject-1")
	assert.EqualValues(t, 1, out["subject-1"].VisitCount)
	assert.Equal(t, []string{"impression:slot-1"}, out["subject-1"].AdInteractions)
}

func TestHandleDataSubjectDeleteErasesAndClearsSyntheticCookie(t *testing.T) {
	h := testHandler(t)
	ctx := context.Background()
	_, err := h.Store.IncrementVisit(ctx, "subject-1")
	require.NoError(t, err)
	require.NoError(t, h.Store.SetOPID(ctx, "subject-1", "partner-token"))

	r := httptest.NewRequest(http.MethodDelete, "/gdpr/data", nil)
	r.Header.Set(HeaderSubjectID, "subject-1")
	w := httptest.NewRecorder()

	h.HandleDataSubject(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == synthetic.CookieName {
			found = true
			assert.Less(t, c.MaxAge, 0)
		}
	}
	assert.True(t, found, "expected synthetic_id cookie to be cleared")

	_, ok, err := h.Store.GetOPID(ctx, "subject-1")
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := h.Store.VisitCount(ctx, "subject-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
