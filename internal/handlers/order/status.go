package order

import "github.com/plastware/storefront/internal/models"

// transitions is the single source of truth for the order lifecycle. Both the
// customer cancel path and the admin status endpoint consult it; an admin can
// only leave the graph with an explicit force flag.
var transitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {models.OrderStatusCompleted},
	models.OrderStatusCompleted:  {},
	models.OrderStatusCancelled:  {},
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s string) bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// CustomerCancellable reports whether the owning user may still cancel.
// Shipped and later states are out of the customer's hands.
func CustomerCancellable(s string) bool {
	return CanTransition(s, models.OrderStatusCancelled)
}
