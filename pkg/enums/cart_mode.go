package enums

// CartMode names the two macro-states of a device cart.
type CartMode string

const (
	// CartModeLocal means the persisted snapshot is the source of truth.
	CartModeLocal CartMode = "local"
	// CartModeRemote means the marketplace cart is consulted first.
	CartModeRemote CartMode = "remote"
)

func (m CartMode) String() string {
	return string(m)
}
