package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/handlers/middleware"
	"github.com/nkiryanov/smsorders/internal/logger"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/service/order"
)

// Header the SMS provider sends its shared key in
const SMSSenderKeyHeader = "X-SMS-Sender-Key"

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	orderService orderService,
	userService userService,
	smsSenderKey string,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService.GetUserFromRequest)
	withAPIKey := middleware.AuthMiddleware(authService.GetUserFromAPIKey)
	withSenderKey := middleware.SharedKeyMiddleware(SMSSenderKeyHeader, smsSenderKey)

	apiuser := http.NewServeMux()
	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /refresh", handleTokenRefresh(authService, logger))
	apiuser.Handle("GET /me", withAuth(handleUserMe()))
	apiuser.Handle("POST /key", withAuth(handleIssueAPIKey(authService, logger)))

	apiorders := http.NewServeMux()
	apiorders.Handle("POST /app_place", withAuth(handleCreateOrder(orderService, logger)))
	apiorders.Handle("POST /user_place", withAPIKey(handleCreateOrder(orderService, logger)))
	apiorders.Handle("GET /list", withAuth(handleListOrders(orderService, false, logger)))
	apiorders.Handle("GET /list_active", withAuth(handleListOrders(orderService, true, logger)))
	apiorders.Handle("POST /cancel/{id}", withAuth(handleCancelOrder(orderService, logger)))
	apiorders.Handle("POST /finish/{id}", withAuth(handleFinishOrder(orderService, logger)))
	apiorders.Handle("PATCH /add_balance", withAuth(handleAddBalance(userService, logger)))
	apiorders.Handle("GET /balance_history", withAuth(handleBalanceHistory(userService, logger)))
	apiorders.Handle("POST /push_sms", withSenderKey(handlePushSMS(orderService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))
	root.Handle("/api/orders/", http.StripPrefix("/api/orders", apiorders))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with username and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound if user not found
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token not found: has to return apperrors.ErrRefreshTokenNotFound
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
	GetUserFromAPIKey(ctx context.Context, r *http.Request) (models.User, error)

	// Create or rotate user API key
	IssueAPIKey(ctx context.Context, user models.User) (string, error)
}

type orderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req order.CreateOrderRequest) (order.OrderWithBalance, error)
	ListOrders(ctx context.Context, userID uuid.UUID, activeOnly bool) (order.OrdersWithBalance, error)
	CancelOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (order.OrderWithBalance, error)
	FinishOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (models.Order, error)
	DeliverSMS(ctx context.Context, activationID string, code string) (string, error)
}

type userService interface {
	TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.Balance, error)
	ListTopUps(ctx context.Context, userID uuid.UUID) ([]models.BalanceHistory, error)
}
