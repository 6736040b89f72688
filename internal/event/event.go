package event

import (
	"log/slog"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
)

// Event types emitted by the token and factory components. Together they form
// the only audit trail of the system; indexers and UIs subscribe instead of
// polling state.
const (
	TypeTransfer             = "transfer"
	TypeMint                 = "mint"
	TypeBurn                 = "burn"
	TypeApproval             = "approval"
	TypeTaxRateUpdated       = "tax_rate_updated"
	TypeTaxBeneficiaryUpdate = "tax_beneficiary_updated"
	TypeNoTaxSenderSet       = "no_tax_sender_set"
	TypeNoTaxRecipientSet    = "no_tax_recipient_set"
	TypeOwnershipTransferred = "ownership_transferred"
	TypeTokenCreated         = "token_created"
	TypeTreasuryUpdated      = "treasury_updated"
	TypeCreationFeeUpdated   = "creation_fee_updated"
	TypeFeesCollected        = "fees_collected"
	TypeTokensCollected      = "tokens_collected"
	TypePaused               = "paused"
	TypeUnpaused             = "unpaused"
)

const topic = "ledger.events"

// Event describes a single observed state change. Token holds the emitting
// instance address and is empty for factory-level events.
type Event struct {
	ID    string
	Type  string
	Token string
	Attrs map[string]string
	At    time.Time
}

// Bus publishes events to all subscribers.
type Bus interface {
	Publish(e Event)
}

// MemoryBus is an in-process Bus backed by EventBus. Subscribers are invoked
// asynchronously so publishing never re-enters a domain lock.
type MemoryBus struct {
	bus EventBus.Bus
}

// NewBus constructs an empty in-process bus.
func NewBus() *MemoryBus {
	return &MemoryBus{bus: EventBus.New()}
}

// Publish stamps the event with an identifier and timestamp when missing and
// delivers it to subscribers.
func (b *MemoryBus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.bus.Publish(topic, e)
}

// Subscribe registers a handler for every published event.
func (b *MemoryBus) Subscribe(fn func(Event)) error {
	return b.bus.SubscribeAsync(topic, fn, false)
}

// Wait blocks until all in-flight deliveries complete. Used by tests and
// during shutdown so the journal does not lose the tail of the trail.
func (b *MemoryBus) Wait() {
	b.bus.WaitAsync()
}

// AttachLogger subscribes a structured-log sink that mirrors every event to
// the application logger.
func AttachLogger(b *MemoryBus, logger *slog.Logger) error {
	return b.Subscribe(func(e Event) {
		attrs := []any{
			slog.String("event_id", e.ID),
			slog.String("type", e.Type),
		}
		if e.Token != "" {
			attrs = append(attrs, slog.String("token", e.Token))
		}
		for k, v := range e.Attrs {
			attrs = append(attrs, slog.String(k, v))
		}
		logger.Info("ledger event", attrs...)
	})
}
