package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/smsorders/internal/apperrors"
	"github.com/nkiryanov/smsorders/internal/logger"
	"github.com/nkiryanov/smsorders/internal/models"
	"github.com/nkiryanov/smsorders/internal/repository"
	"github.com/nkiryanov/smsorders/internal/service/provision"
)

const (
	maxCountryLen = 30
	maxServiceLen = 10
)

// Result of SMS delivery, the caller acknowledges the sender in any case
const (
	DeliveryAdded     = "sms_added"
	DeliveryCancelled = "order_cancelled"
	DeliveryFinished  = "order_finished"
	DeliveryExpired   = "order_expired"
)

// Source of phone numbers
type NumberProvider interface {
	OrderNumber(ctx context.Context, service string, country string) (provision.Number, error)
}

type CreateOrderRequest struct {
	Country string
	Service string
	Amount  decimal.Decimal
}

// Order together with the user balance after the operation
type OrderWithBalance struct {
	Order   models.Order
	Balance models.Balance
}

type OrdersWithBalance struct {
	Orders  []models.Order
	Balance models.Balance
}

type OrderService struct {
	storage  repository.Storage
	provider NumberProvider
	logger   logger.Logger

	// Clock, replaced in tests
	now func() time.Time
}

func NewService(storage repository.Storage, provider NumberProvider, l logger.Logger) *OrderService {
	return &OrderService{
		storage:  storage,
		provider: provider,
		logger:   l,
		now:      time.Now,
	}
}

func (r *CreateOrderRequest) normalize() error {
	r.Country = strings.ToLower(strings.TrimSpace(r.Country))
	r.Service = strings.ToLower(strings.TrimSpace(r.Service))

	switch {
	case r.Country == "" || utf8.RuneCountInString(r.Country) > maxCountryLen:
		return apperrors.ErrOrderCountryInvalid
	case r.Service == "" || utf8.RuneCountInString(r.Service) > maxServiceLen:
		return apperrors.ErrOrderServiceInvalid
	case !models.IsValidAmount(r.Amount):
		return apperrors.ErrAmountInvalid
	}

	return nil
}

// Acquire number from provider and place pending order debiting the user balance
// Nothing is changed if provider fails
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (OrderWithBalance, error) {
	var res OrderWithBalance

	if err := req.normalize(); err != nil {
		return res, err
	}

	ok, err := s.storage.Balance().HasBalance(ctx, userID, req.Amount)
	switch {
	case err != nil:
		return res, fmt.Errorf("can't check balance. Err: %w", err)
	case !ok:
		return res, apperrors.ErrBalanceInsufficient
	}

	number, err := s.provider.OrderNumber(ctx, req.Service, req.Country)
	if err != nil {
		return res, fmt.Errorf("can't acquire number. Err: %w", err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		res.Balance, err = storage.Balance().UpdateBalance(ctx, userID, req.Amount.Neg())
		if err != nil {
			return err
		}

		res.Order, err = storage.Order().CreateOrder(ctx, models.Order{
			UserID:       userID,
			Country:      req.Country,
			Service:      req.Service,
			ActivationID: number.ActivationID,
			Number:       number.Number,
			Status:       models.OrderStatusSmsPending,
			CreatedAt:    s.now(),
			Amount:       req.Amount,
		})
		return err
	})
	if err != nil {
		s.logger.Warn("Acquired number not used", "activation_id", number.ActivationID, "user_id", userID, "error", err)
		return OrderWithBalance{}, fmt.Errorf("can't place order. Err: %w", err)
	}

	s.logger.Info("Order placed", "order_id", res.Order.ID, "activation_id", number.ActivationID, "user_id", userID)
	return res, nil
}

// List user orders newest first
// Stale pending orders are expired and refunded before listing
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, activeOnly bool) (OrdersWithBalance, error) {
	var res OrdersWithBalance

	opts := repository.ListOrdersOpts{}
	if activeOnly {
		opts.Statuses = models.OrderActiveStatuses
	}

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		expired, err := storage.Order().ExpirePending(ctx, userID, models.ExpiryCutoff(s.now()))
		if err != nil {
			return err
		}
		for _, o := range expired {
			if _, err := storage.Balance().UpdateBalance(ctx, userID, o.Amount); err != nil {
				return err
			}
		}

		res.Orders, err = storage.Order().ListOrders(ctx, userID, opts)
		if err != nil {
			return err
		}

		res.Balance, err = storage.Balance().GetBalance(ctx, userID)
		return err
	})
	if err != nil {
		return OrdersWithBalance{}, fmt.Errorf("can't list orders. Err: %w", err)
	}

	return res, nil
}

// Cancel pending order and refund it
// Pending order older than lifetime becomes expired instead of cancelled
func (s *OrderService) CancelOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (OrderWithBalance, error) {
	var res OrderWithBalance

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		order, err := storage.Order().GetOrderForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}

		status, err := order.CancelStatus(s.now())
		if err != nil {
			return err
		}

		res, err = s.release(ctx, storage, order, status)
		return err
	})
	if err != nil {
		return OrderWithBalance{}, fmt.Errorf("can't cancel order. Err: %w", err)
	}

	return res, nil
}

// Mark order with received code as finished
func (s *OrderService) FinishOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (models.Order, error) {
	var order models.Order
	var expired bool

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		order, err = storage.Order().GetOrderForUpdate(ctx, orderID, userID)
		if err != nil {
			return err
		}

		if order.IsStale(s.now()) {
			expired = true
			_, err = s.release(ctx, storage, order, models.OrderStatusExpired)
			return err
		}

		status, err := order.FinishStatus()
		if err != nil {
			return err
		}
		if status == order.Status {
			return nil
		}

		order, err = storage.Order().SetStatus(ctx, order.ID, status)
		return err
	})
	switch {
	case err != nil:
		return models.Order{}, fmt.Errorf("can't finish order. Err: %w", err)
	case expired:
		return models.Order{}, apperrors.ErrOrderAlreadyExpired
	}

	return order, nil
}

// Attach code received from provider to the order
// Orders that can't take the code are acknowledged without changes, the outcome tells why
func (s *OrderService) DeliverSMS(ctx context.Context, activationID string, code string) (string, error) {
	var outcome string

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		order, err := storage.Order().GetOrderByActivationIDForUpdate(ctx, activationID)
		if err != nil {
			return err
		}

		switch {
		case order.Status == models.OrderStatusCancelled:
			outcome = DeliveryCancelled
			return nil
		case order.Status == models.OrderStatusFinished:
			outcome = DeliveryFinished
			return nil
		case order.Status == models.OrderStatusExpired:
			outcome = DeliveryExpired
			return nil
		case order.HasExpired(s.now()):
			outcome = DeliveryExpired
			if order.Status != models.OrderStatusSmsPending {
				return nil
			}
			_, err = s.release(ctx, storage, order, models.OrderStatusExpired)
			return err
		}

		if order.Status == models.OrderStatusSmsPending {
			if _, err := storage.Order().SetStatus(ctx, order.ID, models.OrderStatusSuccess); err != nil {
				return err
			}
		}

		outcome = DeliveryAdded
		_, err = storage.Order().AddSms(ctx, order.ID, code)
		return err
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrOrderNotFound) {
			s.logger.Error("SMS delivery failed", "activation_id", activationID, "error", err)
		}
		return "", fmt.Errorf("can't deliver sms. Err: %w", err)
	}

	s.logger.Debug("SMS delivered", "activation_id", activationID, "outcome", outcome)
	return outcome, nil
}

// Move order to cancelled or expired and refund its amount
func (s *OrderService) release(ctx context.Context, storage repository.Storage, order models.Order, status string) (OrderWithBalance, error) {
	var res OrderWithBalance
	var err error

	res.Order, err = storage.Order().SetStatus(ctx, order.ID, status)
	if err != nil {
		return res, err
	}

	res.Balance, err = storage.Balance().UpdateBalance(ctx, order.UserID, order.Amount)
	if err != nil {
		return res, err
	}

	s.logger.Info("Order released", "order_id", order.ID, "status", status, "refund", order.Amount)
	return res, nil
}
