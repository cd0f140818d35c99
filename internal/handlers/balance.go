package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/handlers/render"
	"github.com/nkiryanov/smsorders/internal/handlers/userctx"
	"github.com/nkiryanov/smsorders/internal/logger"
)

func handleAddBalance(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Amount decimal.Decimal `json:"amount"`
	}

	type response struct {
		Amount float64 `json:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		balance, err := userService.TopUp(r.Context(), user.ID, data.Amount)

		switch {
		case err == nil:
			amount, _ := balance.Amount.Float64()
			render.JSON(w, response{Amount: amount})
		case errors.Is(err, apperrors.ErrAmountInvalid):
			render.FieldError(w, "amount", "Amount should be greater than 0 with at most 2 decimal places")
		default:
			l.Error("Failed to top up balance", "user_id", user.ID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleBalanceHistory(userService userService, l logger.Logger) http.Handler {
	type topUp struct {
		CreatedAt time.Time `json:"created_at"`
		Amount    float64   `json:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		history, err := userService.ListTopUps(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to get balance history", "user_id", user.ID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		topUps := make([]topUp, 0, len(history))
		for _, h := range history {
			amount, _ := h.Amount.Float64()
			topUps = append(topUps, topUp{CreatedAt: h.CreatedAt, Amount: amount})
		}
		render.JSON(w, topUps)
	})
}
