package domain

// Capability names an action a screen or command may offer.
type Capability string

const (
	CapViewOwnOrders       Capability = "view_own_orders"
	CapManageDeliveries    Capability = "manage_deliveries"
	CapViewDeliveryHistory Capability = "view_delivery_history"
	CapEditProfile         Capability = "edit_profile"
)

var roleCapabilities = map[Role][]Capability{
	RoleCustomer: {CapViewOwnOrders, CapEditProfile},
	RoleCourier:  {CapManageDeliveries, CapViewDeliveryHistory, CapEditProfile},
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}
