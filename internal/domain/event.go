package domain

// EventType discriminates ledger notifications.
type EventType string

const (
	EventTransfer       EventType = "Transfer"
	EventApprovalForAll EventType = "ApprovalForAll"
	EventUpdateUser     EventType = "UpdateUser"
	EventStaked         EventType = "Staked"
	EventUnstaked       EventType = "Unstaked"
	EventListed         EventType = "Listed"
	EventSaleCancelled  EventType = "SaleCancelled"
	EventSold           EventType = "Sold"
	EventClaimed        EventType = "Claimed"
)

// Event is a ledger notification for external observers. Payload field order
// is part of the compatibility surface and must not be rearranged.
type Event struct {
	Type       EventType `json:"type"`
	Collection Address   `json:"collection,omitempty"`
	Data       any       `json:"data"`
}

// TransferPayload accompanies EventTransfer.
type TransferPayload struct {
	From    Address `json:"from"`
	To      Address `json:"to"`
	TokenID TokenID `json:"tokenId"`
}

// ApprovalForAllPayload accompanies EventApprovalForAll.
type ApprovalForAllPayload struct {
	Owner    Address `json:"owner"`
	Operator Address `json:"operator"`
	Approved bool    `json:"approved"`
}

// UpdateUserPayload accompanies EventUpdateUser.
type UpdateUserPayload struct {
	TokenID TokenID `json:"tokenId"`
	User    Address `json:"user"`
	Expires int64   `json:"expires"`
}

// StakePayload accompanies EventStaked and EventUnstaked.
type StakePayload struct {
	Holder  Address `json:"holder"`
	TokenID TokenID `json:"tokenId"`
}

// ListingPayload accompanies marketplace events.
type ListingPayload struct {
	TokenID TokenID `json:"tokenId"`
	Seller  Address `json:"seller"`
	Buyer   Address `json:"buyer,omitempty"`
	Price   uint64  `json:"price"`
}

// ClaimPayload accompanies EventClaimed.
type ClaimPayload struct {
	TokenID TokenID `json:"tokenId"`
	Owner   Address `json:"owner"`
	Amount  uint64  `json:"amount"`
	Fee     uint64  `json:"fee"`
}

// Emitter receives ledger events as they are committed.
type Emitter interface {
	Emit(evt Event)
}

// NopEmitter discards events.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(Event) {}
