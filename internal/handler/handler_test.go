package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecapp/internal/config"
	"ecapp/internal/domain/model"
	"ecapp/internal/infra/momo"
	"ecapp/internal/repository"
	"ecapp/internal/usecase"
	"ecapp/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type userRepoMock struct {
	mock.Mock
}

func (m *userRepoMock) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *userRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validator.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var r ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&r))
	return r
}

func TestWriteError(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	require.NoError(t, writeError(c, usecase.NewHTTPErrorWithDetails(http.StatusConflict, "order in status shipping can no longer be cancelled", map[string]any{"status": "shipping"})))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "order in status shipping can no longer be cancelled", body.Error)
	assert.Equal(t, "shipping", body.Details["status"])

	// 想定外のエラーは中身を出さない
	c, rec = newContext(http.MethodGet, "/", "")
	require.NoError(t, writeError(c, errors.New("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode(t, rec).Error)
}

func TestBindAndValidate(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/orders", `{"full_name":"A","phone":"1","email":"a@example.com","address":"x","city":"y","district":"z","payment_method":"momo","items":[{"product_id":1,"quantity":2,"price":1000}]}`)
	var req OrderCreateRequest
	require.NoError(t, bindAndValidate(c, &req))
	assert.Equal(t, "A", req.FullName)
	require.Len(t, req.Items, 1)
	require.NotNil(t, req.Items[0].Price)
	assert.Equal(t, int64(1000), *req.Items[0].Price)

	c, _ = newContext(http.MethodPost, "/orders", `{"payment_method":"paypal","items":[{"product_id":1,"quantity":0}]}`)
	err := bindAndValidate(c, &OrderCreateRequest{})
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	fields := he.Details["fields"].(map[string]string)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "payment_method")
	assert.Contains(t, fields, "items[0].quantity")

	c, _ = newContext(http.MethodPost, "/orders", `{not json`)
	err = bindAndValidate(c, &OrderCreateRequest{})
	he, ok = usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid body", he.Message)
}

func TestPathIDAndQuery(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/orders/12?page=abc&category_id=3", "")
	c.SetParamNames("id")
	c.SetParamValues("12")

	id, err := pathID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = queryInt(c, "page", 1)
	assert.Error(t, err)

	limit, err := queryInt(c, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	cat, err := queryInt64Ptr(c, "category_id")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, int64(3), *cat)

	c.SetParamValues("-1")
	_, err = pathID(c, "id")
	assert.Error(t, err)
}

func TestMoMoCallback_RejectsForgedSignature(t *testing.T) {
	client := momo.NewClient(config.MoMoConfig{PartnerCode: "MOMO", AccessKey: "ak", SecretKey: "sk"}, nil)
	uc := usecase.NewPaymentUsecase(nil, nil, client, nil, nil, nil)

	e := echo.New()
	NewPaymentHandler(uc).RegisterRoutes(e)

	body := `{"partnerCode":"MOMO","orderId":"ORD00000001","requestId":"r","amount":1000,"transId":1,"resultCode":0,"signature":"forged"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/momo/callback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid signature", decode(t, rec).Error)
}

func TestOrderRoutes_RequireAuthAndValidBody(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	users := new(userRepoMock)
	users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Role: model.RoleCustomer, IsActive: true}, nil)

	e := echo.New()
	e.Validator = validator.New()
	NewOrderHandler(nil, nil).RegisterRoutes(e, cfg, users)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "customer", "tv": 0, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"payment_method":"cod","items":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Details["fields"], "items")
}

type auditLogRepoStub struct {
	got  repository.AuditLogListFilter
	logs []model.AuditLog
}

func (s *auditLogRepoStub) Create(context.Context, model.AuditLog) error { return nil }

func (s *auditLogRepoStub) List(_ context.Context, f repository.AuditLogListFilter) ([]model.AuditLog, int64, error) {
	s.got = f
	return s.logs, int64(len(s.logs)), nil
}

func TestAdminAuditLogRoutes(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	users := new(userRepoMock)
	users.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Role: model.RoleCustomer, IsActive: true}, nil)
	users.On("FindByID", mock.Anything, int64(9)).Return(&model.User{ID: 9, Role: model.RoleAdmin, IsActive: true}, nil)

	logs := &auditLogRepoStub{logs: []model.AuditLog{{ID: 5, Action: model.AuditActionDeleteCategory, ResourceType: model.AuditResourceCategory, ResourceID: 3}}}
	e := echo.New()
	NewAdminAuditLogHandler(usecase.NewAuditLogUsecase(logs)).RegisterRoutes(e, cfg, users)

	get := func(sub, target string) *httptest.ResponseRecorder {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": sub, "role": "customer", "tv": 0, "exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, get("1", "/admin/audit-logs").Code)
	assert.Equal(t, http.StatusBadRequest, get("9", "/admin/audit-logs?resource_id=x").Code)

	rec := get("9", "/admin/audit-logs?action=DELETE_CATEGORY&resource_type=category&resource_id=3&page=1&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var out usecase.AuditLogListOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(1), out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(5), out.Items[0].ID)

	require.NotNil(t, logs.got.ResourceID)
	assert.Equal(t, int64(3), *logs.got.ResourceID)
	assert.Equal(t, "DELETE_CATEGORY", logs.got.Action)
	assert.Equal(t, 10, logs.got.Limit)
}
