package orders

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

var validNext = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusConfirmed: true, StatusCancelled: true, StatusExpired: true},
	StatusConfirmed:      {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing:     {StatusShipped: true},
	StatusShipped:        {StatusDelivered: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
	StatusExpired:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal statuses never change again.
func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// Effect is the ledger operation a transition applies to every order line.
type Effect int

const (
	EffectNone Effect = iota
	EffectRelease
	EffectShip
)

func TransitionEffect(to Status) Effect {
	switch to {
	case StatusCancelled, StatusExpired:
		return EffectRelease
	case StatusShipped:
		return EffectShip
	}
	return EffectNone
}
