package ingest_api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	webauth "promoloft.app/studio/cmd/web/auth"
	"promoloft.app/studio/internal/extract"
	"promoloft.app/studio/internal/platform"
)

type fakeExtractor struct {
	quick    *extract.QuickResult
	full     *extract.FullResult
	quickErr error
	fullErr  error
	calls    int
}

func (f *fakeExtractor) QuickExtract(ctx context.Context, rawURL string) (*extract.QuickResult, error) {
	f.calls++
	return f.quick, f.quickErr
}

func (f *fakeExtractor) FullExtract(ctx context.Context, rawURL string, generateTranscript bool) (*extract.FullResult, error) {
	f.calls++
	return f.full, f.fullErr
}

func sessionCookie(t *testing.T, sm *webauth.SessionManager, level webauth.AccessLevel) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.SaveSession(rr, req, uuid.NewString(), "tester", level))

	for _, c := range rr.Result().Cookies() {
		if c.Name == webauth.SessionName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func doExtract(t *testing.T, sm *webauth.SessionManager, svc Extractor, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/extract", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)

	err := HandleExtract(sm, svc)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rr
}

func TestHandleExtract_RequiresSession(t *testing.T) {
	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{}

	rr := doExtract(t, sm, svc, `{"url":"https://youtu.be/x","mode":"quick"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Zero(t, svc.calls, "unauthorized calls must not reach the pipeline")
}

func TestHandleExtract_RequiresAdminRole(t *testing.T) {
	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{}

	cookie := sessionCookie(t, sm, webauth.AccessUser)
	rr := doExtract(t, sm, svc, `{"url":"https://youtu.be/x","mode":"quick"}`, cookie)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Zero(t, svc.calls)
}

func TestHandleExtract_QuickSuccess(t *testing.T) {
	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{quick: &extract.QuickResult{
		Platform: platform.YouTube,
		SourceID: "x",
		Title:    "A Video",
	}}

	cookie := sessionCookie(t, sm, webauth.AccessAdmin)
	rr := doExtract(t, sm, svc, `{"url":"https://youtu.be/x","mode":"quick"}`, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"source_id":"x"`)
}

func TestHandleExtract_InvalidInputMapsTo400(t *testing.T) {
	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{fullErr: &extract.InvalidInputError{Reason: "unsupported platform"}}

	cookie := sessionCookie(t, sm, webauth.AccessAdmin)
	rr := doExtract(t, sm, svc, `{"url":"https://vimeo.com/1","mode":"full"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleExtract_ConflictMapsTo409(t *testing.T) {
	var existingID pgtype.UUID
	require.NoError(t, existingID.Scan(uuid.NewString()))

	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{fullErr: &extract.ConflictError{VideoID: existingID, Slug: "spring-sale-2024"}}

	cookie := sessionCookie(t, sm, webauth.AccessAdmin)
	rr := doExtract(t, sm, svc, `{"url":"https://youtu.be/x","mode":"full"}`, cookie)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "spring-sale-2024")
	require.Contains(t, rr.Body.String(), existingID.String())
}

func TestHandleExtract_UnknownModeMapsTo400(t *testing.T) {
	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{}

	cookie := sessionCookie(t, sm, webauth.AccessAdmin)
	rr := doExtract(t, sm, svc, `{"url":"https://youtu.be/x","mode":"sideways"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, svc.calls)
}

func TestHandleExtract_MissingURLMapsTo400(t *testing.T) {
	sm := webauth.NewSessionManager("test-secret")
	svc := &fakeExtractor{}

	cookie := sessionCookie(t, sm, webauth.AccessAdmin)
	rr := doExtract(t, sm, svc, `{"mode":"quick"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, svc.calls)
}
