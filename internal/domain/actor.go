package domain

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

type Capability string

const (
	// CapViewReservations allows reading any reservation.
	CapViewReservations Capability = "view_reservations"
	// CapCreateReservations allows booking.
	CapCreateReservations Capability = "create_reservations"
	// CapManageReservations allows cancelling any reservation, including past the deadline.
	CapManageReservations Capability = "manage_reservations"
	// CapEditReservations allows patching customer and weather fields.
	CapEditReservations Capability = "edit_reservations"
	// CapProcessPayments allows payment and refund bookkeeping.
	CapProcessPayments Capability = "process_payments"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapViewReservations, CapCreateReservations, CapManageReservations,
		CapEditReservations, CapProcessPayments,
	},
	RoleStaff: {
		CapViewReservations, CapCreateReservations, CapManageReservations, CapProcessPayments,
	},
	RoleCustomer: {
		CapCreateReservations,
	},
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return Role(s), nil
	}
	return "", Validationf("unknown role %q", s)
}

// Actor is the resolved caller of a lifecycle operation.
type Actor struct {
	ID           string
	Role         Role
	Capabilities map[Capability]bool
}

// NewActor builds an actor. Explicit permissions replace the role defaults;
// unknown permission strings are ignored.
func NewActor(id string, role Role, permissions []string) *Actor {
	caps := make(map[Capability]bool)
	if len(permissions) > 0 {
		for _, p := range permissions {
			c := Capability(p)
			if knownCapability(c) {
				caps[c] = true
			}
		}
	} else {
		for _, c := range roleCapabilities[role] {
			caps[c] = true
		}
	}
	return &Actor{ID: id, Role: role, Capabilities: caps}
}

func knownCapability(c Capability) bool {
	for _, cs := range roleCapabilities {
		for _, k := range cs {
			if k == c {
				return true
			}
		}
	}
	return false
}

func (a *Actor) Can(c Capability) bool {
	return a != nil && a.Capabilities[c]
}

// Require returns an ErrUnauthorized error unless the actor holds c.
func (a *Actor) Require(c Capability) error {
	if a == nil {
		return Unauthorizedf("no actor")
	}
	if !a.Can(c) {
		return Unauthorizedf("actor %s lacks %s", a.ID, c)
	}
	return nil
}

// Owns reports whether the reservation belongs to the actor's account.
func (a *Actor) Owns(r *Reservation) bool {
	if a == nil || a.ID == "" {
		return false
	}
	return r.OwnerID == a.ID
}
