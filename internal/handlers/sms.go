package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/handlers/render"
	"github.com/nkiryanov/smsorders/internal/logger"
	"github.com/nkiryanov/smsorders/internal/service/order"
)

var deliveryMessages = map[string]string{
	order.DeliveryAdded:     "SMS code added to order",
	order.DeliveryCancelled: "Order has already been cancelled",
	order.DeliveryFinished:  "Order has already been finished",
	order.DeliveryExpired:   "20 minutes have already passed after order creation",
}

// Accept SMS code from provider
// Provider gets 200 for every known activation id, even if the code is not stored
func handlePushSMS(orderService orderService, l logger.Logger) http.Handler {
	type request struct {
		ActivationID string `json:"activationId" validate:"required"`
		Text         string `json:"text" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		outcome, err := orderService.DeliverSMS(r.Context(), data.ActivationID, data.Text)
		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: deliveryMessages[outcome]})
		case errors.Is(err, apperrors.ErrOrderNotFound):
			render.ServiceError(w, "Order not found against activation ID", http.StatusNotFound)
		default:
			l.Error("Failed to deliver sms", "activation_id", data.ActivationID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
