package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sand/crypto-wallet-admin/backend/internal/core/ports"
	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

type fakeUserService struct {
	users      []entities.UserWithWallet
	pagination entities.Pagination
	detail     *entities.UserDetail
	err        error

	lastParams ports.ListUsersParams
}

func (f *fakeUserService) ListUsers(_ context.Context, params ports.ListUsersParams) ([]entities.UserWithWallet, entities.Pagination, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, entities.Pagination{}, f.err
	}
	return f.users, f.pagination, nil
}

func (f *fakeUserService) GetUserDetail(context.Context, int64) (*entities.UserDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

type fakeDepositService struct {
	result     *ports.ManualDepositResult
	deposits   []entities.DepositWithUser
	pagination entities.Pagination
	detail     *ports.ManualDepositDetail
	stats      *entities.DepositStats
	cancelled  *entities.Deposit
	err        error

	listCalls  int
	lastCreate ports.CreateManualDepositInput
	lastList   ports.ListDepositsParams
	lastCancel ports.CancelDepositInput
}

func (f *fakeDepositService) CreateManualDeposit(_ context.Context, in ports.CreateManualDepositInput) (*ports.ManualDepositResult, error) {
	f.lastCreate = in
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeDepositService) ListManualDeposits(_ context.Context, params ports.ListDepositsParams) ([]entities.DepositWithUser, entities.Pagination, error) {
	f.listCalls++
	f.lastList = params
	if f.err != nil {
		return nil, entities.Pagination{}, f.err
	}
	return f.deposits, f.pagination, nil
}

func (f *fakeDepositService) GetManualDeposit(context.Context, int64) (*ports.ManualDepositDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func (f *fakeDepositService) GetManualDepositStats(context.Context) (*entities.DepositStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func (f *fakeDepositService) CancelManualDeposit(_ context.Context, in ports.CancelDepositInput) (*entities.Deposit, error) {
	f.lastCancel = in
	if f.err != nil {
		return nil, f.err
	}
	return f.cancelled, nil
}

func newTestRouter(users ports.UserService, deposits ports.DepositService) *mux.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHTTPHandler(logger, users, deposits, nil)

	router := mux.NewRouter()
	handler.RegisterHealthRoute(router)
	handler.RegisterRoutes(router)
	return router
}

func serveAsAdmin(router *mux.Router, req *http.Request) *httptest.ResponseRecorder {
	admin := entities.AdminPrincipal{ID: 1, Email: "admin@example.com"}
	req = req.WithContext(ContextWithAdmin(req.Context(), admin))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListUsersHandler(t *testing.T) {
	users := &fakeUserService{
		users: []entities.UserWithWallet{
			{User: entities.User{ID: 7, Email: "alice@example.com", IsActive: true}},
		},
		pagination: entities.NewPagination(2, 20, 45),
	}
	router := newTestRouter(users, &fakeDepositService{})

	req := httptest.NewRequest(http.MethodGet, "/users?page=2&limit=20&search=alice", nil)
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rec)
	require.Equal(t, true, body["success"])
	require.Len(t, body["data"], 1)

	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(3), pagination["totalPages"])
	require.Equal(t, true, pagination["hasNext"])

	require.Equal(t, "alice", users.lastParams.Search)
	require.Equal(t, 2, users.lastParams.Page)
}

func TestListUsersHandlerEmptyPage(t *testing.T) {
	users := &fakeUserService{pagination: entities.NewPagination(1, 50, 0)}
	router := newTestRouter(users, &fakeDepositService{})

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// A page past the data is still a success with an empty array.
	require.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListUsersHandlerBadPage(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeDepositService{})

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/users?page=abc", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, "page", body["field"])
}

// A limit the client actually supplied must be range-checked, not silently
// replaced by the default page size.
func TestListUsersHandlerExplicitLimitOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		limit string
	}{
		{"zero", "0"},
		{"negative", "-1"},
		{"above maximum", "101"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := &fakeUserService{}
			router := newTestRouter(users, &fakeDepositService{})

			rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/users?limit="+tc.limit, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeEnvelope(t, rec)
			require.Equal(t, "limit", body["field"])
		})
	}
}

func TestListManualDepositsHandlerExplicitZeroLimitRejected(t *testing.T) {
	deposits := &fakeDepositService{}
	router := newTestRouter(&fakeUserService{}, deposits)

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/manual-deposits?limit=0", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, deposits.listCalls)
}

func TestGetUserDetailHandlerNotFound(t *testing.T) {
	users := &fakeUserService{err: entities.ErrUserNotFound}
	router := newTestRouter(users, &fakeDepositService{})

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/users/999", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateManualDepositHandler(t *testing.T) {
	deposits := &fakeDepositService{
		result: &ports.ManualDepositResult{
			Deposit:    &entities.Deposit{ID: 11, UserID: 7, Amount: decimal.RequireFromString("100.00")},
			User:       &entities.User{ID: 7, Email: "alice@example.com"},
			NewBalance: decimal.RequireFromString("150.00"),
		},
	}
	router := newTestRouter(&fakeUserService{}, deposits)

	payload := `{"userId":7,"amount":"100.00","currency":"USDT","network":"BEP20","notes":"support ticket 4821"}`
	req := httptest.NewRequest(http.MethodPost, "/manual-deposit", strings.NewReader(payload))
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeEnvelope(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Manual deposit created successfully", body["message"])

	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	require.Equal(t, "150", user["newBalance"])

	// sendEmail defaults to true when omitted.
	require.True(t, deposits.lastCreate.SendEmail)
	require.Equal(t, "admin@example.com", deposits.lastCreate.Admin.Email)
}

func TestCreateManualDepositHandlerValidationError(t *testing.T) {
	deposits := &fakeDepositService{err: entities.NewValidationError("amount", "amount must be positive")}
	router := newTestRouter(&fakeUserService{}, deposits)

	payload := `{"userId":7,"amount":"-5","currency":"USDT","network":"BEP20"}`
	req := httptest.NewRequest(http.MethodPost, "/manual-deposit", strings.NewReader(payload))
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, "amount", body["field"])
	require.Equal(t, "amount must be positive", body["error"])
}

func TestCreateManualDepositHandlerInvalidBody(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeDepositService{})

	req := httptest.NewRequest(http.MethodPost, "/manual-deposit", strings.NewReader("{not json"))
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateManualDepositHandlerNoPrincipal(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeDepositService{})

	req := httptest.NewRequest(http.MethodPost, "/manual-deposit", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Unauthorized", body["error"])
}

func TestGetManualDepositHandler(t *testing.T) {
	deposits := &fakeDepositService{
		detail: &ports.ManualDepositDetail{
			Deposit: &entities.Deposit{ID: 11, UserID: 7, DepositType: entities.DepositTypeManualAdmin},
			AuditTrail: []entities.AuditEvent{
				{DepositID: 11, Kind: entities.AuditManualCredit, AdminEmail: "admin@example.com"},
			},
		},
	}
	router := newTestRouter(&fakeUserService{}, deposits)

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/manual-deposits/11", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	trail, ok := data["audit_trail"].([]any)
	require.True(t, ok)
	require.Len(t, trail, 1)
}

func TestGetManualDepositHandlerNotFound(t *testing.T) {
	deposits := &fakeDepositService{err: entities.ErrDepositNotFound}
	router := newTestRouter(&fakeUserService{}, deposits)

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/manual-deposits/404", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListManualDepositsHandlerFilters(t *testing.T) {
	deposits := &fakeDepositService{pagination: entities.NewPagination(1, 20, 0)}
	router := newTestRouter(&fakeUserService{}, deposits)

	req := httptest.NewRequest(http.MethodGet, "/manual-deposits?userId=7&dateFrom=2026-01-01&dateTo=2026-01-31", nil)
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, deposits.lastList.UserID)
	require.Equal(t, int64(7), *deposits.lastList.UserID)
	require.Equal(t, "2026-01-01", deposits.lastList.DateFrom.Format("2006-01-02"))

	// dateTo is inclusive, extended to the end of the day.
	require.Equal(t, "2026-01-31", deposits.lastList.DateTo.Format("2006-01-02"))
	require.Equal(t, 23, deposits.lastList.DateTo.Hour())
}

func TestListManualDepositsHandlerBadDate(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeDepositService{})

	req := httptest.NewRequest(http.MethodGet, "/manual-deposits?dateFrom=31-01-2026", nil)
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, "dateFrom", body["field"])
}

func TestCancelManualDepositHandler(t *testing.T) {
	deposits := &fakeDepositService{
		cancelled: &entities.Deposit{ID: 11, Status: entities.DepositStatusCancelled},
	}
	router := newTestRouter(&fakeUserService{}, deposits)

	payload := `{"reason":"duplicate entry","refundAmount":"100.00"}`
	req := httptest.NewRequest(http.MethodPut, "/manual-deposits/11/cancel", strings.NewReader(payload))
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, "Manual deposit cancelled successfully", body["message"])

	require.Equal(t, int64(11), deposits.lastCancel.DepositID)
	require.Equal(t, "duplicate entry", deposits.lastCancel.Reason)
	require.NotNil(t, deposits.lastCancel.RefundAmount)
}

func TestCancelManualDepositHandlerAlreadyCancelled(t *testing.T) {
	deposits := &fakeDepositService{err: entities.ErrDepositAlreadyCancelled}
	router := newTestRouter(&fakeUserService{}, deposits)

	req := httptest.NewRequest(http.MethodPut, "/manual-deposits/11/cancel", strings.NewReader(`{"reason":"dup"}`))
	rec := serveAsAdmin(router, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDepositStatsHandler(t *testing.T) {
	deposits := &fakeDepositService{
		stats: &entities.DepositStats{
			Total: entities.DepositStatsBucket{Count: 3, Amount: decimal.RequireFromString("300.00")},
		},
	}
	router := newTestRouter(&fakeUserService{}, deposits)

	rec := serveAsAdmin(router, httptest.NewRequest(http.MethodGet, "/manual-deposits/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, true, body["success"])
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("healthy", func(t *testing.T) {
		handler := NewHTTPHandler(logger, &fakeUserService{}, &fakeDepositService{}, func() error { return nil })
		router := mux.NewRouter()
		handler.RegisterHealthRoute(router)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		handler := NewHTTPHandler(logger, &fakeUserService{}, &fakeDepositService{}, func() error { return io.ErrUnexpectedEOF })
		router := mux.NewRouter()
		handler.RegisterHealthRoute(router)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
