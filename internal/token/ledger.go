package token

import (
	"sync"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

// Ledger is an in-memory Token implementation. It backs tests and the demo
// fixture; a production deployment would adapt a real settlement rail behind
// the same interface.
type Ledger struct {
	mu         sync.Mutex
	balances   map[domain.Address]uint64
	allowances map[domain.Address]map[domain.Address]uint64
}

// NewLedger returns an empty token ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[domain.Address]uint64),
		allowances: make(map[domain.Address]map[domain.Address]uint64),
	}
}

// Mint credits freshly issued funds to an account.
func (l *Ledger) Mint(to domain.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] += amount
}

// BalanceOf implements Token.
func (l *Ledger) BalanceOf(owner domain.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner]
}

// Allowance implements Token.
func (l *Ledger) Allowance(owner, spender domain.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[owner][spender]
}

// Approve implements Token.
func (l *Ledger) Approve(owner, spender domain.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[domain.Address]uint64)
		l.allowances[owner] = m
	}
	m[spender] = amount
}

// Transfer implements Token.
func (l *Ledger) Transfer(from, to domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// TransferFrom implements Token.
func (l *Ledger) TransferFrom(spender, from, to domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if spender != from {
		allowed := l.allowances[from][spender]
		if allowed < amount {
			return domain.ErrInsufficientAllowance
		}
		if err := l.move(from, to, amount); err != nil {
			return err
		}
		l.allowances[from][spender] = allowed - amount
		return nil
	}
	return l.move(from, to, amount)
}

func (l *Ledger) move(from, to domain.Address, amount uint64) error {
	if l.balances[from] < amount {
		return domain.ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
