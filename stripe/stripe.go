// Package stripe is a stand-in for the card processor. It keeps payment
// intents in memory and settles them on confirmation.
package stripe

import (
	"context"
	"sync"
	"time"

	"trendaryo/apperr"

	"github.com/google/uuid"
)

type IntentStatus string

const (
	RequiresConfirmation IntentStatus = "requires_confirmation"
	Succeeded            IntentStatus = "succeeded"
	Canceled             IntentStatus = "canceled"
)

// Intent is a request to collect Amount minor units of Currency.
type Intent struct {
	ID           string       `json:"id"`
	ClientSecret string       `json:"clientSecret"`
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	Reference    string       `json:"reference"`
	Status       IntentStatus `json:"status"`
	ChargeID     string       `json:"chargeId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, reference string) (*Intent, error)
	Confirm(ctx context.Context, intentID string) (*Intent, error)
}

type Stub struct {
	mu      sync.Mutex
	intents map[string]*Intent
}

func NewStub() *Stub {
	return &Stub{intents: make(map[string]*Intent)}
}

func (s *Stub) CreateIntent(_ context.Context, amount int64, currency, reference string) (*Intent, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	id := "pi_" + uuid.New().String()
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String()[:8],
		Amount:       amount,
		Currency:     currency,
		Reference:    reference,
		Status:       RequiresConfirmation,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	s.intents[id] = in
	s.mu.Unlock()
	cp := *in
	return &cp, nil
}

// Confirm settles the intent. Confirming a settled intent returns it unchanged.
func (s *Stub) Confirm(_ context.Context, intentID string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[intentID]
	if !ok {
		return nil, apperr.NotFound("payment intent %s not found", intentID)
	}
	if in.Status == RequiresConfirmation {
		in.Status = Succeeded
		in.ChargeID = "ch_" + uuid.New().String()
	}
	cp := *in
	return &cp, nil
}

// Cancel marks an unsettled intent canceled.
func (s *Stub) Cancel(intentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.intents[intentID]; ok && in.Status == RequiresConfirmation {
		in.Status = Canceled
	}
}
