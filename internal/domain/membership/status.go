package membership

// Status is the lifecycle state of a client's membership.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusPending Status = "PENDING" // set and cleared by payment/admin flows
)

// IsKnown reports whether s is one of the persisted membership states.
func (s Status) IsKnown() bool {
	switch s {
	case StatusActive, StatusExpired, StatusPending:
		return true
	default:
		return false
	}
}
