package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AhmedTUD/invoice/internal/config"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/session"
)

type fakeVerifier struct {
	valid string
	err   error
}

func (f fakeVerifier) Verify(_ context.Context, token string) (model.AdminSession, error) {
	if f.err != nil {
		return model.AdminSession{}, f.err
	}
	if token != f.valid {
		return model.AdminSession{}, session.ErrSessionInvalid
	}
	return model.AdminSession{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func protected(v SessionVerifier) *echo.Echo {
	e := echo.New()
	e.POST("/p", func(c echo.Context) error {
		var body struct {
			SessionToken string `json:"sessionToken"`
			Name         string `json:"name"`
		}
		_ = c.Bind(&body)
		return c.String(http.StatusOK, SessionToken(c)+":"+body.Name)
	}, RequireSession(v))
	return e
}

func TestRequireSession_TokenSources(t *testing.T) {
	e := protected(fakeVerifier{valid: "tok"})

	cases := map[string]func(r *http.Request){
		"bearer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok") },
		"header": func(r *http.Request) { r.Header.Set(HeaderSessionToken, "tok") },
		"query":  func(r *http.Request) { r.URL.RawQuery = "sessionToken=tok" },
	}
	for name, prep := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/p", nil)
			prep(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "tok:", rec.Body.String())
		})
	}

	t.Run("json body is restored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(`{"sessionToken":"tok","name":"x"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tok:x", rec.Body.String())
	})
}

func TestSessionToken_LargeBodyReachesHandlerWhole(t *testing.T) {
	pad := strings.Repeat("x", 2*maxPeekBytes)
	body := `{"name":"` + pad + `"}`
	req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	assert.Empty(t, SessionToken(c))

	got, err := io.ReadAll(c.Request().Body)
	require.NoError(t, err)
	assert.Equal(t, len(body), len(got))
	assert.Equal(t, body, string(got))
	require.NoError(t, c.Request().Body.Close())

	var bound struct {
		Name string `json:"name"`
	}
	req = httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(`{"sessionToken":"tok","name":"`+pad+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = echo.New().NewContext(req, httptest.NewRecorder())
	assert.Empty(t, SessionToken(c), "token beyond the peek window is not found")
	require.NoError(t, json.NewDecoder(c.Request().Body).Decode(&bound))
	assert.Equal(t, pad, bound.Name)
}

func TestRequireSession_Rejects(t *testing.T) {
	e := protected(fakeVerifier{valid: "tok"})

	for _, hdr := range []string{"", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodPost, "/p", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	}

	e = protected(fakeVerifier{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodPost, "/p", nil)
	req.Header.Set(HeaderSessionToken, "tok")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNilRedis_PassThrough(t *testing.T) {
	e := echo.New()
	calls := 0
	e.GET("/m", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(config.LoadCacheConfig(), nil), NewTokenBucket(config.LoadRateLimitConfig(), nil))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/m", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, calls)
	assert.NoError(t, Invalidate(context.Background(), nil, "p"))
}

func TestCachedResponse_Replay(t *testing.T) {
	stored := cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}, "Content-Length": {"7"}, "X-Cache": {"MISS"}},
		Body:   []byte(`{"a":1}`),
	}
	bs, err := json.Marshal(stored)
	require.NoError(t, err)
	var got cachedResponse
	require.NoError(t, json.Unmarshal(bs, &got))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/m", nil), rec)
	require.NoError(t, got.replay(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"a":1}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("Content-Length"))
}

func TestCaptureWriter_Limit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))

	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(7), cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}
