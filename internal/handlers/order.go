package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/handlers/render"
	"github.com/nkiryanov/smsorders/internal/handlers/userctx"
	"github.com/nkiryanov/smsorders/internal/logger"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/service/order"
	"github.com/nkiryanov/smsorders/internal/service/provision"
)

type orderResponse struct {
	ID           uuid.UUID `json:"id"`
	Country      string    `json:"country"`
	Service      string    `json:"service"`
	ActivationID string    `json:"activation_id"`
	Number       string    `json:"number"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Amount       float64   `json:"amount"`
	SmsCodes     []string  `json:"sms_codes"`
}

func newOrderResponse(o models.Order) orderResponse {
	amount, _ := o.Amount.Float64()
	codes := o.SmsCodes
	if codes == nil {
		codes = []string{}
	}

	return orderResponse{
		ID:           o.ID,
		Country:      o.Country,
		Service:      o.Service,
		ActivationID: o.ActivationID,
		Number:       o.Number,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		Amount:       amount,
		SmsCodes:     codes,
	}
}

// Render order service error with matching status
func renderOrderError(w http.ResponseWriter, err error, l logger.Logger) {
	var provErr *provision.Error

	switch {
	case errors.Is(err, apperrors.ErrOrderNotFound):
		render.ServiceError(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrBalanceInsufficient):
		render.ServiceError(w, "Insufficient funds", http.StatusNotAcceptable)
	case errors.Is(err, apperrors.ErrOrderAlreadySuccessful):
		render.ServiceError(w, "Order is already successful", http.StatusNotAcceptable)
	case errors.Is(err, apperrors.ErrOrderAlreadyFinished):
		render.ServiceError(w, "Order is already finished", http.StatusNotAcceptable)
	case errors.Is(err, apperrors.ErrOrderAlreadyCancelled):
		render.ServiceError(w, "Order is already cancelled", http.StatusNotAcceptable)
	case errors.Is(err, apperrors.ErrOrderAlreadyExpired):
		render.ServiceError(w, "Order is already expired", http.StatusNotAcceptable)
	case errors.Is(err, apperrors.ErrOrderSmsPending):
		render.ServiceError(w, "SMS still pending for order", http.StatusNotAcceptable)
	case errors.Is(err, apperrors.ErrOrderCountryInvalid):
		render.FieldError(w, "country", "Invalid value")
	case errors.Is(err, apperrors.ErrOrderServiceInvalid):
		render.FieldError(w, "service", "Invalid value")
	case errors.Is(err, apperrors.ErrAmountInvalid):
		render.FieldError(w, "amount", "Amount should be greater than 0 with at most 2 decimal places")
	case errors.As(err, &provErr):
		code := provErr.StatusCode
		if code < http.StatusBadRequest {
			code = http.StatusBadGateway
		}
		render.ServiceError(w, "Error in acquiring number. This might be because the service or country is not correct.", code)
	default:
		l.Error("Order request failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func handleCreateOrder(orderService orderService, l logger.Logger) http.Handler {
	type request struct {
		Country string          `json:"country" validate:"required,max=30"`
		Service string          `json:"service" validate:"required,max=10"`
		Amount  decimal.Decimal `json:"amount"`
	}

	type response struct {
		Amount       float64 `json:"amount"` // balance left
		Number       string  `json:"number"`
		ActivationID string  `json:"activationId"`
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

		res, err := orderService.CreateOrder(r.Context(), user.ID, order.CreateOrderRequest{
			Country: data.Country,
			Service: data.Service,
			Amount:  data.Amount,
		})
		if err != nil {
			renderOrderError(w, err, l)
			return
		}

		amount, _ := res.Balance.Amount.Float64()
		render.JSON(w, response{
			Amount:       amount,
			Number:       res.Order.Number,
			ActivationID: res.Order.ActivationID,
		})
	})
}

func handleListOrders(orderService orderService, activeOnly bool, l logger.Logger) http.Handler {
	type response struct {
		Balance float64         `json:"balance"`
		Orders  []orderResponse `json:"orders"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		res, err := orderService.ListOrders(r.Context(), user.ID, activeOnly)
		if err != nil {
			renderOrderError(w, err, l)
			return
		}

		orders := make([]orderResponse, 0, len(res.Orders))
		for _, o := range res.Orders {
			orders = append(orders, newOrderResponse(o))
		}
		balance, _ := res.Balance.Amount.Float64()
		render.JSON(w, response{Balance: balance, Orders: orders})
	})
}

func handleCancelOrder(orderService orderService, l logger.Logger) http.Handler {
	type response struct {
		Balance float64 `json:"balance"`
		Status  string  `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		orderID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Order not found", http.StatusNotFound)
			return
		}

		res, err := orderService.CancelOrder(r.Context(), user.ID, orderID)
		if err != nil {
			renderOrderError(w, err, l)
			return
		}

		balance, _ := res.Balance.Amount.Float64()
		render.JSON(w, response{Balance: balance, Status: res.Order.Status})
	})
}

func handleFinishOrder(orderService orderService, l logger.Logger) http.Handler {
	type response struct {
		Status string `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		orderID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Order not found", http.StatusNotFound)
			return
		}

		o, err := orderService.FinishOrder(r.Context(), user.ID, orderID)
		if err != nil {
			renderOrderError(w, err, l)
			return
		}

		render.JSON(w, response{Status: o.Status})
	})
}
