// Package pay collects payment for pending orders through the card
// gateway and confirms them once the charge settles.
package pay

import (
	"context"
	"strings"
	"time"

	"trendaryo/apperr"
	"trendaryo/models"
	"trendaryo/orders"
	"trendaryo/rdx"
	"trendaryo/stripe"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// lockTTL bounds how long one payment call holds the per-order lock.
const lockTTL = 10 * time.Second

type Service struct {
	Orders  *orders.Service
	Gateway stripe.Gateway
	Locks   rdx.Locker
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// MinorUnits converts an amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// withLock runs fn while holding the payment lock of orderID.
func (s *Service) withLock(ctx context.Context, orderID string, fn func() error) error {
	if s.Locks == nil {
		return fn()
	}
	key := "payment:" + orderID
	token, ok, err := s.Locks.Lock(ctx, key, lockTTL)
	if err != nil {
		return apperr.Persistence(err, "acquire payment lock")
	}
	if !ok {
		return apperr.Conflict("a payment for this order is already in progress, please retry")
	}
	defer s.Locks.Unlock(context.WithoutCancel(ctx), key, token)
	return fn()
}

func payable(o *models.Order) error {
	if o.PaymentStatus == models.PaymentPaid {
		return apperr.Conflict("order %s is already paid", o.OrderNumber)
	}
	if o.Status != models.OrderPending {
		return apperr.Conflict("order %s is %s and cannot be paid", o.OrderNumber, o.Status)
	}
	return nil
}

// CreateIntent opens a payment intent for the order total and records its
// id on the order.
func (s *Service) CreateIntent(ctx context.Context, userID, orderID string) (*stripe.Intent, error) {
	var intent *stripe.Intent
	err := s.withLock(ctx, orderID, func() error {
		o, err := s.Orders.Get(ctx, orderID, userID, false)
		if err != nil {
			return err
		}
		if err := payable(o); err != nil {
			return err
		}
		intent, err = s.Gateway.CreateIntent(ctx, MinorUnits(o.Total), strings.ToLower(o.Currency), o.OrderNumber)
		if err != nil {
			return err
		}
		details := o.PaymentDetails
		details.PaymentIntentID = intent.ID
		return s.Orders.Orders.SetPayment(ctx, o.ID, models.PaymentProcessing, details)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("order", orderID).Str("intent", intent.ID).Int64("amount", intent.Amount).Msg("payment intent created")
	return intent, nil
}

// Confirm settles the intent and moves the order to confirmed, which
// deducts its stock.
func (s *Service) Confirm(ctx context.Context, userID, orderID, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, apperr.Validation("paymentIntentId is required")
	}
	var confirmed *models.Order
	err := s.withLock(ctx, orderID, func() error {
		o, err := s.Orders.Get(ctx, orderID, userID, false)
		if err != nil {
			return err
		}
		if err := payable(o); err != nil {
			return err
		}
		if o.PaymentDetails.PaymentIntentID != intentID {
			return apperr.Validation("payment intent does not belong to this order")
		}
		intent, err := s.Gateway.Confirm(ctx, intentID)
		if err != nil {
			return err
		}
		if intent.Status != stripe.Succeeded {
			if err := s.Orders.Orders.SetPayment(ctx, o.ID, models.PaymentFailed, o.PaymentDetails); err != nil {
				log.Error().Err(err).Str("order", o.OrderNumber).Msg("record failed payment")
			}
			return apperr.Validation("payment was not completed")
		}

		confirmed, err = s.Orders.Transition(ctx, o.ID, orders.TransitionRequest{
			To:            models.OrderConfirmed,
			Actor:         userID,
			Note:          "Payment received",
			PaymentStatus: models.PaymentPaid,
		})
		if err != nil {
			log.Error().Err(err).Str("order", o.OrderNumber).Str("charge", intent.ChargeID).Msg("charge settled but order not confirmed")
			return err
		}
		paidAt := s.now()
		details := models.PaymentDetails{
			TransactionID:   intent.ChargeID,
			PaymentIntentID: intent.ID,
			ReceiptURL:      "/api/v1/orders/" + o.ID + "/receipt",
			PaidAt:          &paidAt,
		}
		if err := s.Orders.Orders.SetPayment(ctx, o.ID, models.PaymentPaid, details); err != nil {
			return err
		}
		confirmed.PaymentStatus = models.PaymentPaid
		confirmed.PaymentDetails = details
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("order", confirmed.OrderNumber).Msg("order paid")
	return confirmed, nil
}
