package handlers

import (
	"sync"

	"pos-service/internal/cart"
	"pos-service/internal/checkout"
)

// RegisterSession owns the single active order and its checkout flow. The
// register is a one-lane device: every order mutation and checkout step runs
// under one mutex, so concurrent HTTP requests serialize instead of
// interleaving half-built orders.
type RegisterSession struct {
	mu          sync.Mutex
	order       *cart.Cart
	checkout    *checkout.Checkout
	newCheckout func() *checkout.Checkout
}

// NewRegisterSession creates a session with an empty order. newCheckout
// builds a fresh checkout state machine; one is consumed per completed or
// cancelled sale.
func NewRegisterSession(newCheckout func() *checkout.Checkout) *RegisterSession {
	return &RegisterSession{
		order:       cart.New(),
		checkout:    newCheckout(),
		newCheckout: newCheckout,
	}
}

// Reset discards the current order and checkout, starting a fresh sale
func (s *RegisterSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = cart.New()
	s.checkout = s.newCheckout()
}
