package orders

import (
	"slices"

	"trendaryo/models"
)

// fulfillment is the forward order of the non-terminal states plus delivered.
var fulfillment = []models.OrderStatus{
	models.OrderPending,
	models.OrderConfirmed,
	models.OrderProcessing,
	models.OrderReadyForShipment,
	models.OrderShipped,
	models.OrderOutForDelivery,
	models.OrderDelivered,
}

var (
	cancellable = []models.OrderStatus{
		models.OrderPending, models.OrderConfirmed, models.OrderProcessing, models.OrderReadyForShipment,
	}
	returnable = []models.OrderStatus{
		models.OrderShipped, models.OrderOutForDelivery,
	}
	refundable = []models.OrderStatus{
		models.OrderConfirmed, models.OrderProcessing, models.OrderReadyForShipment,
		models.OrderShipped, models.OrderOutForDelivery,
	}
)

func Terminal(s models.OrderStatus) bool {
	switch s {
	case models.OrderDelivered, models.OrderCancelled, models.OrderReturned, models.OrderRefunded:
		return true
	}
	return false
}

// CanCancel reports whether an order in status s may still be cancelled.
func CanCancel(s models.OrderStatus) bool {
	return slices.Contains(cancellable, s)
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to models.OrderStatus) bool {
	if Terminal(from) || from == to {
		return false
	}
	switch to {
	case models.OrderCancelled:
		return CanCancel(from)
	case models.OrderReturned:
		return slices.Contains(returnable, from)
	case models.OrderRefunded:
		return slices.Contains(refundable, from)
	}
	i, j := slices.Index(fulfillment, from), slices.Index(fulfillment, to)
	return i >= 0 && j > i
}

// restocks reports whether entering s gives deducted stock back.
func restocks(s models.OrderStatus) bool {
	return s == models.OrderCancelled || s == models.OrderReturned || s == models.OrderRefunded
}
