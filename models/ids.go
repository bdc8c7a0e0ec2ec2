package models

// Nominal identifier types. Keeping these distinct stops an expert id from
// being passed where a guest identifier or payout account is expected.
type (
	ExpertID         string
	GuestID          string
	EventID          string
	ReservationID    string
	MeetingID        string
	TransferID       string
	PaymentSessionID string
	PayoutAccountID  string
)

func (id ExpertID) String() string         { return string(id) }
func (id GuestID) String() string          { return string(id) }
func (id EventID) String() string          { return string(id) }
func (id ReservationID) String() string    { return string(id) }
func (id MeetingID) String() string        { return string(id) }
func (id TransferID) String() string       { return string(id) }
func (id PaymentSessionID) String() string { return string(id) }
func (id PayoutAccountID) String() string  { return string(id) }
