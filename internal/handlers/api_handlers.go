package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.openly.dev/pointy"

	"github.com/sand/crypto-wallet-admin/backend/internal/core/ports"
	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

const dateLayout = "2006-01-02"

type HTTPHandler struct {
	logger   *slog.Logger
	users    ports.UserService
	deposits ports.DepositService
	health   func() error
}

func NewHTTPHandler(logger *slog.Logger, users ports.UserService, deposits ports.DepositService, health func() error) *HTTPHandler {
	return &HTTPHandler{
		logger:   logger,
		users:    users,
		deposits: deposits,
		health:   health,
	}
}

// RegisterRoutes registers the admin API endpoints. The passed router is
// expected to carry the admin auth middleware.
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Users
	router.HandleFunc("/users", h.ListUsersHandler).Methods("GET")
	router.HandleFunc("/users/{userId:[0-9]+}", h.GetUserDetailHandler).Methods("GET")

	// Manual deposits
	router.HandleFunc("/manual-deposit", h.CreateManualDepositHandler).Methods("POST")
	router.HandleFunc("/manual-deposits", h.ListManualDepositsHandler).Methods("GET")
	router.HandleFunc("/manual-deposits/stats", h.GetDepositStatsHandler).Methods("GET")
	router.HandleFunc("/manual-deposits/{depositId:[0-9]+}", h.GetManualDepositHandler).Methods("GET")
	router.HandleFunc("/manual-deposits/{depositId:[0-9]+}/cancel", h.CancelManualDepositHandler).Methods("PUT")
}

// RegisterHealthRoute registers the unauthenticated health endpoint.
func (h *HTTPHandler) RegisterHealthRoute(router *mux.Router) {
	router.HandleFunc("/health", h.HealthHandler).Methods("GET")
}

// ListUsersHandler returns active users with wallet summaries, optionally
// filtered by a substring search on name, email or phone.
func (h *HTTPHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	users, pagination, err := h.users.ListUsers(r.Context(), ports.ListUsersParams{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	if users == nil {
		users = []entities.UserWithWallet{}
	}
	h.respondJSON(w, http.StatusOK, response{Success: true, Data: users, Pagination: &pagination})
}

// GetUserDetailHandler returns one user with wallet summary and recent
// deposits.
func (h *HTTPHandler) GetUserDetailHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		h.respondError(w, entities.NewValidationError("userId", "invalid user id"))
		return
	}

	detail, err := h.users.GetUserDetail(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{Success: true, Data: detail})
}

type createManualDepositRequest struct {
	UserID    int64           `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Network   string          `json:"network"`
	Notes     string          `json:"notes"`
	TxHash    *string         `json:"txHash"`
	SendEmail *bool           `json:"sendEmail"`
}

// depositUserPayload augments the user with the post-operation balance
// reported by the ledger.
type depositUserPayload struct {
	entities.User
	NewBalance decimal.Decimal `json:"newBalance"`
}

// CreateManualDepositHandler credits a user's wallet with a manual deposit.
func (h *HTTPHandler) CreateManualDepositHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusUnauthorized, response{Error: "Unauthorized"})
		return
	}

	var req createManualDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, entities.NewValidationError("body", "invalid request body"))
		return
	}

	result, err := h.deposits.CreateManualDeposit(r.Context(), ports.CreateManualDepositInput{
		UserID:    req.UserID,
		Amount:    req.Amount,
		Currency:  entities.Currency(req.Currency),
		Network:   entities.Network(req.Network),
		Notes:     req.Notes,
		TxHash:    req.TxHash,
		SendEmail: pointy.BoolValue(req.SendEmail, true),
		Admin:     admin,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, response{
		Success: true,
		Message: "Manual deposit created successfully",
		Data: map[string]any{
			"deposit": result.Deposit,
			"user": depositUserPayload{
				User:       *result.User,
				NewBalance: result.NewBalance,
			},
		},
	})
}

// ListManualDepositsHandler returns manual deposits filtered by optional
// owner and inclusive creation-date range.
func (h *HTTPHandler) ListManualDepositsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePageParams(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	params := ports.ListDepositsParams{Page: page, Limit: limit}

	if v := r.URL.Query().Get("userId"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.respondError(w, entities.NewValidationError("userId", "invalid user id"))
			return
		}
		params.UserID = pointy.Int64(userID)
	}

	if v := r.URL.Query().Get("dateFrom"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			h.respondError(w, entities.NewValidationError("dateFrom", "expected YYYY-MM-DD"))
			return
		}
		params.DateFrom = &from
	}

	if v := r.URL.Query().Get("dateTo"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			h.respondError(w, entities.NewValidationError("dateTo", "expected YYYY-MM-DD"))
			return
		}
		// Inclusive upper bound: extend to the end of the day.
		to = to.Add(24*time.Hour - time.Nanosecond)
		params.DateTo = &to
	}

	deposits, pagination, err := h.deposits.ListManualDeposits(r.Context(), params)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if deposits == nil {
		deposits = []entities.DepositWithUser{}
	}
	h.respondJSON(w, http.StatusOK, response{Success: true, Data: deposits, Pagination: &pagination})
}

// GetManualDepositHandler returns one manual deposit with its audit trail.
func (h *HTTPHandler) GetManualDepositHandler(w http.ResponseWriter, r *http.Request) {
	depositID, err := strconv.ParseInt(mux.Vars(r)["depositId"], 10, 64)
	if err != nil {
		h.respondError(w, entities.NewValidationError("depositId", "invalid deposit id"))
		return
	}

	detail, err := h.deposits.GetManualDeposit(r.Context(), depositID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{Success: true, Data: detail})
}

// GetDepositStatsHandler returns manual deposit totals overall and per
// currency/network.
func (h *HTTPHandler) GetDepositStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deposits.GetManualDepositStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{Success: true, Data: stats})
}

type cancelDepositRequest struct {
	Reason       string           `json:"reason"`
	RefundAmount *decimal.Decimal `json:"refundAmount"`
}

// CancelManualDepositHandler cancels a manual deposit and optionally
// refunds the depositor's wallet.
func (h *HTTPHandler) CancelManualDepositHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		h.respondJSON(w, http.StatusUnauthorized, response{Error: "Unauthorized"})
		return
	}

	depositID, err := strconv.ParseInt(mux.Vars(r)["depositId"], 10, 64)
	if err != nil {
		h.respondError(w, entities.NewValidationError("depositId", "invalid deposit id"))
		return
	}

	var req cancelDepositRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, entities.NewValidationError("body", "invalid request body"))
		return
	}

	deposit, err := h.deposits.CancelManualDeposit(r.Context(), ports.CancelDepositInput{
		DepositID:    depositID,
		Reason:       req.Reason,
		RefundAmount: req.RefundAmount,
		Admin:        admin,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response{
		Success: true,
		Message: "Manual deposit cancelled successfully",
		Data:    deposit,
	})
}

// HealthHandler reports database connectivity.
func (h *HTTPHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(); err != nil {
			h.respondJSON(w, http.StatusServiceUnavailable, response{Error: "database unreachable"})
			return
		}
	}
	h.respondJSON(w, http.StatusOK, response{Success: true})
}

// parsePageParams parses page and limit. Absent values default to page 1
// and limit 0 (the service fills in the per-listing default). A limit that
// was actually supplied is range-checked here, since downstream the zero
// value is indistinguishable from "absent".
func parsePageParams(r *http.Request) (int, int, error) {
	page := 1
	limit := 0

	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, entities.NewValidationError("page", "page must be an integer")
		}
		page = p
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, entities.NewValidationError("limit", "limit must be an integer")
		}
		if l < 1 || l > ports.MaxPageSize {
			return 0, 0, entities.NewValidationError("limit", "limit must be between 1 and 100")
		}
		limit = l
	}

	return page, limit, nil
}
