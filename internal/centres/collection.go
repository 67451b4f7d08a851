package centres

// Collection describes one keyed record kind held by a centre.
type Collection struct {
	Name     string
	IDFields []string
	// Tracked collections keep every written version in a history.
	Tracked bool
}

// IDField is the field echoed back next to "id" in write responses.
func (c Collection) IDField() string {
	if len(c.IDFields) == 0 {
		return "id"
	}
	return c.IDFields[0]
}

var (
	Items     = Collection{Name: "items", IDFields: []string{"item_id"}}
	Customers = Collection{Name: "customers", IDFields: []string{"customer_id", "id"}, Tracked: true}
	Bookings  = Collection{Name: "bookings", IDFields: []string{"booking_id", "id"}, Tracked: true}
)
