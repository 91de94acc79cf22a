package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/AhmedTUD/invoice/internal/config"
	"github.com/AhmedTUD/invoice/internal/database"
	"github.com/AhmedTUD/invoice/internal/export"
	"github.com/AhmedTUD/invoice/internal/handler"
	"github.com/AhmedTUD/invoice/internal/intake"
	"github.com/AhmedTUD/invoice/internal/records"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/router"
	"github.com/AhmedTUD/invoice/internal/session"
	"github.com/AhmedTUD/invoice/internal/storage"
	"github.com/AhmedTUD/invoice/internal/utils"
)

const (
	adminUser = "admin"
	adminPass = "admin2025"
)

type server struct {
	e  *echo.Echo
	db *sql.DB
}

func newServer(t *testing.T) server {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, "sqlite"))
	_, err = database.Seed(ctx, db, database.SeedOptions{
		AdminUsername: adminUser, AdminPassword: adminPass, BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	employees := repository.NewEmployeeRepo(db)
	submissions := repository.NewSubmissionRepo(db)
	sessions := session.NewManager(repository.NewAdminRepo(db), repository.NewSessionRepo(db), session.Options{BcryptCost: bcrypt.MinCost})
	links := utils.NewFileLinkSigner("test-secret", time.Minute)
	in := intake.NewService(db, employees, submissions, store, intake.Options{})
	rec := records.NewService(db, submissions, store, records.Options{Links: links})

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Health:      handler.NewHealthHandler("test"),
		Submissions: handler.NewSubmissionHandler(in, rec),
		Employees:   handler.NewEmployeeHandler(employees),
		Catalog:     handler.NewCatalogHandler(repository.NewCatalogRepo(db), nil, "", nil),
		Admin:       handler.NewAdminHandler(sessions),
		Exports:     handler.NewExportHandler(rec, export.New(store, nil)),
		Files:       handler.NewFileHandler(store, links),
		TestData:    handler.NewTestDataHandler(db, employees),
		Sessions:    sessions,
		Cache:       config.CacheConfig{Enabled: true},
		RateLimit:   config.RateLimitConfig{Enabled: true, Capacity: 1},
		CORSOrigins: []string{"*"},
	})
	return server{e: e, db: db}
}

func (s server) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func jsonReq(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func (s server) login(t *testing.T) string {
	t.Helper()
	rec, body := s.do(t, jsonReq(http.MethodPost, "/api/admin/login", map[string]string{"username": adminUser, "password": adminPass}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := body["sessionToken"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func withToken(req *http.Request, tok string) *http.Request {
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type part struct {
	field, filename string
	data            []byte
}

func multipartReq(t *testing.T, basic, invoices any, files ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	b, err := json.Marshal(basic)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("basicData", string(b)))
	b, err = json.Marshal(invoices)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("invoicesData", string(b)))
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

var ahmed = map[string]string{
	"email": "ahmed@store.com", "name": "Ahmed Ali", "mobile": "01012345678",
	"serial": "EMP-7", "storeName": "Cairo Mall", "storeCode": "CAI-01",
}

func (s server) submit(t *testing.T) string {
	t.Helper()
	invoices := []map[string]string{
		{"id": "d1", "model": "RS68AB820B1/MR", "salesDate": "2025-03-01"},
		{"id": "d2", "model": "UE55AU7000UXEG", "salesDate": "2025-04-10"},
	}
	rec, body := s.do(t, multipartReq(t, ahmed, invoices, part{"invoiceFile_d1", "receipt.png", pngBytes(t)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id, _ := body["submissionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestAdminLogin_WrongPasswordStoresNothing(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, jsonReq(http.MethodPost, "/api/admin/login", map[string]string{"username": adminUser, "password": "nope"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM admin_sessions`).Scan(&n))
	assert.Zero(t, n)
}

func TestAdminSessionLifecycle(t *testing.T) {
	s := newServer(t)
	tok := s.login(t)

	rec, body := s.do(t, withToken(jsonReq(http.MethodPost, "/api/admin/verify-session", nil), tok))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])

	rec, _ = s.do(t, jsonReq(http.MethodPost, "/api/admin/verify-session", map[string]string{"sessionToken": tok}))
	assert.Equal(t, http.StatusOK, rec.Code, "token may travel in the body")

	rec, _ = s.do(t, withToken(jsonReq(http.MethodPost, "/api/admin/change-password",
		map[string]string{"currentPassword": "wrong", "newPassword": "n"}), tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, withToken(jsonReq(http.MethodPost, "/api/admin/change-password",
		map[string]string{"currentPassword": adminPass, "newPassword": strings.Repeat("p", session.MaxPasswordBytes+1)}), tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "overlong password is a client error")

	rec, _ = s.do(t, withToken(jsonReq(http.MethodPost, "/api/admin/logout", nil), tok))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, withToken(jsonReq(http.MethodPost, "/api/admin/verify-session", nil), tok))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLogin_RateLimitDisabledWithoutRedis(t *testing.T) {
	s := newServer(t)
	for i := 0; i < 3; i++ {
		s.login(t)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newServer(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodDelete, "/api/submissions"},
		{http.MethodDelete, "/api/submissions/filtered"},
		{http.MethodDelete, "/api/invoices/filtered"},
		{http.MethodDelete, "/api/invoices/x"},
		{http.MethodPost, "/api/models"},
		{http.MethodGet, "/api/exports/spreadsheet"},
		{http.MethodPost, "/api/test-data"},
	} {
		rec, _ := s.do(t, jsonReq(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
	}
}

func TestSubmissions_CreateAndFilter(t *testing.T) {
	s := newServer(t)
	s.submit(t)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions?model=rs68", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	data := body["data"].([]any)
	row := data[0].(map[string]any)
	assert.Equal(t, "RS68AB820B1/MR", row["model"])
	assert.Equal(t, "ثلاجات", row["category"])
	assert.True(t, strings.HasPrefix(row["fileDataUrl"].(string), "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(row["fileUrl"].(string), "/api/files/"))

	fileRec, _ := s.do(t, httptest.NewRequest(http.MethodGet, row["fileUrl"].(string), nil))
	assert.Equal(t, http.StatusOK, fileRec.Code)
	assert.Equal(t, pngBytes(t), fileRec.Body.Bytes())

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions?withFiles=false&dateFrom=2025-04-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	row = body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "UE55AU7000UXEG", row["model"])
	assert.NotContains(t, row, "fileDataUrl")
}

func TestSubmissions_RejectsInvalidIntake(t *testing.T) {
	s := newServer(t)
	bad := map[string]string{"email": "no-at-sign", "name": "x", "mobile": "1", "serial": "s", "storeName": "n", "storeCode": "c"}
	rec, body := s.do(t, multipartReq(t, bad, []map[string]string{{"id": "d1", "model": "M", "salesDate": "2025-01-01"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = s.do(t, multipartReq(t, ahmed, []map[string]string{{"id": "d1", "model": "M", "salesDate": "2025-01-01"}},
		part{"invoiceFile_d1", "notes.txt", []byte("plain text is not an invoice")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, jsonReq(http.MethodPost, "/api/submissions", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFiles_RejectBadLink(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/files/abc.png?token=forged", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/image/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPurgeFiltered_EmptyFiltersRejected(t *testing.T) {
	s := newServer(t)
	s.submit(t)
	tok := s.login(t)

	rec, body := s.do(t, withToken(jsonReq(http.MethodDelete, "/api/submissions/filtered", map[string]any{"filters": map[string]string{}}), tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = s.do(t, withToken(jsonReq(http.MethodDelete, "/api/submissions/filtered",
		map[string]any{"filters": map[string]string{"model": "rs68"}}), tok))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deleted := body["deleted"].(map[string]any)
	assert.EqualValues(t, 1, deleted["invoices"])
	assert.EqualValues(t, 0, deleted["submissions"], "submission keeps its other invoice")
	assert.EqualValues(t, 1, deleted["files"])

	_, list := s.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions?withFiles=false", nil))
	assert.EqualValues(t, 1, list["count"])
}

func TestPurgeAll(t *testing.T) {
	s := newServer(t)
	s.submit(t)
	tok := s.login(t)

	rec, body := s.do(t, withToken(jsonReq(http.MethodDelete, "/api/submissions", nil), tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all", body["scope"])

	_, list := s.do(t, httptest.NewRequest(http.MethodGet, "/api/submissions", nil))
	assert.EqualValues(t, 0, list["count"])
}

func TestModels_DeleteBlockedWhileInUse(t *testing.T) {
	s := newServer(t)
	s.submit(t)
	tok := s.login(t)

	rec, body := s.do(t, withToken(jsonReq(http.MethodDelete, "/api/models/model-1", nil), tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = s.do(t, withToken(jsonReq(http.MethodDelete, "/api/models/model-2", nil), tok))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/models/active", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, m := range body["data"].([]any) {
		assert.NotEqual(t, "model-2", m.(map[string]any)["id"])
	}
}

func TestModels_CreateAndUpdate(t *testing.T) {
	s := newServer(t)
	tok := s.login(t)

	rec, body := s.do(t, withToken(jsonReq(http.MethodPost, "/api/models",
		map[string]any{"name": "QA55Q60", "category": "تلفزيونات", "isActive": true}), tok))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := body["data"].(map[string]any)["id"].(string)

	rec, _ = s.do(t, withToken(jsonReq(http.MethodPost, "/api/models",
		map[string]any{"name": "QA55Q60", "category": "x"}), tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate name")

	rec, body = s.do(t, withToken(jsonReq(http.MethodPut, "/api/models/"+id,
		map[string]any{"name": "QA55Q60B", "category": "تلفزيونات"}), tok))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["data"].(map[string]any)["isActive"], "omitted isActive keeps the current value")
}

func TestEmployees_SearchAndLookup(t *testing.T) {
	s := newServer(t)
	s.submit(t)

	_, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/employees/search?email=ahmed", nil))
	assert.Empty(t, body["data"], "fragment without @")

	_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/employees/search?email=ahmed@st", nil))
	assert.Len(t, body["data"], 1)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/employees/ahmed@store.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EMP-7", body["data"].(map[string]any)["serial"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/employees/nobody@store.com", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExports(t *testing.T) {
	s := newServer(t)
	tok := s.login(t)

	rec, _ := s.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/exports/spreadsheet", nil), tok))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing to export")

	s.submit(t)
	rec, _ = s.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/exports/spreadsheet", nil), tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "invoices_report_")
	assert.Equal(t, "1", rec.Header().Get(handler.HeaderImagesAdded))
	assert.Equal(t, "1", rec.Header().Get(handler.HeaderImagesSkipped))

	rec, _ = s.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/exports/archive?model=rs68", nil), tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeZIP, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "1", rec.Header().Get(handler.HeaderImagesAdded))
	assert.Equal(t, "0", rec.Header().Get(handler.HeaderImagesSkipped))
}

func TestExports_EmbedsUploadedJPEGUnchanged(t *testing.T) {
	s := newServer(t)
	tok := s.login(t)

	img := image.NewRGBA(image.Rect(0, 0, 30, 12))
	img.Set(3, 3, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	upload := buf.Bytes()

	invoices := []map[string]string{{"id": "d1", "model": "RS68AB820B1/MR", "salesDate": "2025-03-01"}}
	rec, _ := s.do(t, multipartReq(t, ahmed, invoices, part{"invoiceFile_d1", "receipt.jpg", upload}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, withToken(httptest.NewRequest(http.MethodGet, "/api/exports/spreadsheet", nil), tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(handler.HeaderImagesAdded))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	pics, err := f.GetPictures("Cairo_Mall", "G6")
	require.NoError(t, err)
	require.Len(t, pics, 1)
	assert.True(t, bytes.Equal(upload, pics[0].File), "embedded image differs from upload")
}

func TestTestData_SeedsDemoEmployee(t *testing.T) {
	s := newServer(t)
	tok := s.login(t)

	rec, body := s.do(t, withToken(jsonReq(http.MethodPost, "/api/test-data", nil), tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test@example.com", body["data"].(map[string]any)["email"])
}
