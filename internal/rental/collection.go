// Package rental implements a rentable asset collection: permanent ownership,
// time-boxed usage rights with lazy expiry, and the escrowed earnings ledger
// that collects rent and pays it out to holders net of the platform fee.
package rental

import (
	"fmt"

	"github.com/natreeum/tomaas-staking-protocol/internal/asset"
	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
	"github.com/natreeum/tomaas-staking-protocol/internal/token"
)

// feeDenominator converts basis points to a fraction.
const feeDenominator = 10000

// Config assembles a collection's dependencies.
type Config struct {
	Name         string
	Payment      token.Token
	Account      domain.Address // the collection's escrow account
	FeeRecipient domain.Address
	FeeRateBps   uint64
	Clock        domain.Clock
	Emitter      domain.Emitter
}

// Collection couples the ownership primitive with usage rights and the
// per-asset unclaimed earnings ledger. Ownership and usage are independent
// maps; transferring a token never touches its usage right.
type Collection struct {
	*asset.Ledger

	name         string
	payment      token.Token
	account      domain.Address
	feeRecipient domain.Address
	feeRate      uint64
	clock        domain.Clock
	emitter      domain.Emitter

	users     map[domain.TokenID]domain.UsageRight
	unclaimed map[domain.TokenID]uint64
}

// New builds a collection. Payment and Account are required; a nil clock
// defaults to the system clock.
func New(cfg Config) (*Collection, error) {
	if cfg.Payment == nil {
		return nil, fmt.Errorf("rental collection %q: payment token is required", cfg.Name)
	}
	if cfg.Account.IsZero() {
		return nil, domain.ErrZeroAddress
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.SystemClock
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = domain.NopEmitter{}
	}
	return &Collection{
		Ledger:       asset.NewLedger(emitter),
		name:         cfg.Name,
		payment:      cfg.Payment,
		account:      cfg.Account,
		feeRecipient: cfg.FeeRecipient,
		feeRate:      cfg.FeeRateBps,
		clock:        clock,
		emitter:      emitter,
		users:        make(map[domain.TokenID]domain.UsageRight),
		unclaimed:    make(map[domain.TokenID]uint64),
	}, nil
}

// Name returns the collection's display name.
func (c *Collection) Name() string { return c.name }

// Account returns the collection's escrow account.
func (c *Collection) Account() domain.Address { return c.account }

// Payment returns the accepted payment token.
func (c *Collection) Payment() token.Token { return c.payment }

// FeeRate returns the platform cut in basis points.
func (c *Collection) FeeRate() uint64 { return c.feeRate }

// SetFeeRate replaces the platform cut. The facade restricts this to the
// administrator role.
func (c *Collection) SetFeeRate(bps uint64) error {
	if bps > feeDenominator {
		return fmt.Errorf("fee rate %d exceeds %d basis points", bps, feeDenominator)
	}
	c.feeRate = bps
	return nil
}

// SetFeeRecipient replaces the platform fee recipient.
func (c *Collection) SetFeeRecipient(to domain.Address) error {
	if to.IsZero() {
		return domain.ErrZeroAddress
	}
	c.feeRecipient = to
	return nil
}

// SetUser attaches a usage right to the token, overwriting any prior right
// unconditionally. Only the owner or an approved delegate may grant rights.
func (c *Collection) SetUser(caller domain.Address, id domain.TokenID, user domain.Address, expires int64) error {
	ok, err := c.IsApprovedOrOwner(caller, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotOwnerOrApproved
	}
	c.users[id] = domain.UsageRight{User: user, Expires: expires}
	c.emitter.Emit(domain.Event{
		Type: domain.EventUpdateUser,
		Data: domain.UpdateUserPayload{TokenID: id, User: user, Expires: expires},
	})
	return nil
}

// UserOf returns the active renter, or the zero address once the right has
// lapsed. Expiry is a pure comparison against the injected clock; no state
// transition ever marks a right expired.
func (c *Collection) UserOf(id domain.TokenID) (domain.Address, error) {
	if !c.Exists(id) {
		return domain.ZeroAddress, domain.ErrUnknownAsset
	}
	r := c.users[id]
	if r.User.IsZero() || c.clock().Unix() >= r.Expires {
		return domain.ZeroAddress, nil
	}
	return r.User, nil
}

// UserExpires returns the stored expiry, even when already in the past.
func (c *Collection) UserExpires(id domain.TokenID) (int64, error) {
	if !c.Exists(id) {
		return 0, domain.ErrUnknownAsset
	}
	return c.users[id].Expires, nil
}

// UsageRight returns the raw stored right without expiry interpretation.
func (c *Collection) UsageRight(id domain.TokenID) (domain.UsageRight, error) {
	if !c.Exists(id) {
		return domain.UsageRight{}, domain.ErrUnknownAsset
	}
	return c.users[id], nil
}

// PayOutEarnings collects rent for one token from its active renter and
// credits the token's unclaimed balance. The renter must have approved the
// collection's escrow account for at least the amount.
func (c *Collection) PayOutEarnings(caller domain.Address, id domain.TokenID, amount uint64) error {
	user, err := c.UserOf(id)
	if err != nil {
		return err
	}
	if user.IsZero() || user != caller {
		return domain.ErrNotCurrentUser
	}
	if err := c.payment.TransferFrom(c.account, caller, c.account, amount); err != nil {
		return err
	}
	c.unclaimed[id] += amount
	return nil
}

// PayOutEarningsAllRented splits one payment evenly across every token the
// caller actively rents. The full amount is collected but each token is
// credited amount/k; the integer-division remainder stays in escrow. That
// rounding loss is a documented property of the ledger, preserved for
// compatibility. Do not redistribute it.
func (c *Collection) PayOutEarningsAllRented(caller domain.Address, amount uint64) error {
	var rented []domain.TokenID
	for _, id := range c.AllTokens() {
		user, err := c.UserOf(id)
		if err != nil {
			return err
		}
		if user == caller {
			rented = append(rented, id)
		}
	}
	if len(rented) == 0 {
		return domain.ErrNoActiveRentals
	}
	if err := c.payment.TransferFrom(c.account, caller, c.account, amount); err != nil {
		return err
	}
	share := amount / uint64(len(rented))
	for _, id := range rented {
		c.unclaimed[id] += share
	}
	return nil
}

// ClaimEarnings pays the token's unclaimed balance to its owner, minus the
// platform fee. The balance is zeroed before any transfer so a reentrant
// claim observes an empty balance.
func (c *Collection) ClaimEarnings(caller domain.Address, id domain.TokenID) (paid, fee uint64, err error) {
	owner, err := c.OwnerOf(id)
	if err != nil {
		return 0, 0, err
	}
	if caller != owner {
		return 0, 0, domain.ErrNotOwnerOrApproved
	}
	amount := c.unclaimed[id]
	if amount == 0 {
		return 0, 0, domain.ErrNoEarnings
	}

	fee = amount * c.feeRate / feeDenominator
	c.unclaimed[id] = 0

	if fee > 0 && !c.feeRecipient.IsZero() {
		if err := c.payment.Transfer(c.account, c.feeRecipient, fee); err != nil {
			c.unclaimed[id] = amount
			return 0, 0, err
		}
	}
	if err := c.payment.Transfer(c.account, owner, amount-fee); err != nil {
		// Undo the fee leg so the failed claim leaves no partial state.
		if fee > 0 && !c.feeRecipient.IsZero() {
			_ = c.payment.Transfer(c.feeRecipient, c.account, fee)
		}
		c.unclaimed[id] = amount
		return 0, 0, err
	}

	c.emitter.Emit(domain.Event{
		Type: domain.EventClaimed,
		Data: domain.ClaimPayload{TokenID: id, Owner: owner, Amount: amount, Fee: fee},
	})
	return amount - fee, fee, nil
}

// UnclaimedEarnings returns the escrowed balance credited to one token.
func (c *Collection) UnclaimedEarnings(id domain.TokenID) (uint64, error) {
	if !c.Exists(id) {
		return 0, domain.ErrUnknownAsset
	}
	return c.unclaimed[id], nil
}

// UnclaimedEarningsAll sums unclaimed balances across every token the owner
// currently holds.
func (c *Collection) UnclaimedEarningsAll(owner domain.Address) uint64 {
	var total uint64
	for _, id := range c.TokensOf(owner) {
		total += c.unclaimed[id]
	}
	return total
}
