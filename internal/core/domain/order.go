package domain

// HistoryEvent is one entry of an order's tracking history.
type HistoryEvent struct {
	Status   string `json:"status"`
	Location string `json:"location"`
	Date     string `json:"date"`
}

// Size holds parcel dimensions.
type Size struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Order is a parcel as served by the orders API.
type Order struct {
	ID            string         `json:"_id"`
	Title         string         `json:"title"`
	Desc          string         `json:"desc"`
	Status        string         `json:"status"`
	UserID        string         `json:"userId,omitempty"`
	EstimatedTime string         `json:"estimatedTime"`
	CourierID     string         `json:"courierId,omitempty"`
	Address       string         `json:"address,omitempty"`
	Postal        string         `json:"postal,omitempty"`
	GPS           string         `json:"gps,omitempty"`
	Weight        float64        `json:"weight,omitempty"`
	Size          *Size          `json:"size,omitempty"`
	History       []HistoryEvent `json:"history,omitempty"`
}

// NotificationSettings are the per-user notification toggles.
type NotificationSettings struct {
	OrderUpdates      bool `json:"orderUpdates"`
	PromotionalEmails bool `json:"promotionalEmails"`
	StatusChanges     bool `json:"statusChanges"`
}
