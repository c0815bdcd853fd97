package core

import (
	"fmt"
	"sync"
)

// Mint describes one token species on the emulated ledger.
type Mint struct {
	Address  string
	Symbol   string
	Decimals uint8
	Supply   uint64
}

// TokenState is a multi-mint token ledger: per-mint supply plus per-owner
// balances, keyed by hex-encoded public keys.
type TokenState struct {
	lock     sync.RWMutex
	mints    map[string]*Mint
	balances map[string]map[string]uint64
}

func NewTokenState() *TokenState {
	return &TokenState{
		mints:    make(map[string]*Mint),
		balances: make(map[string]map[string]uint64),
	}
}

// CreateMint registers a mint. Re-creating an existing mint is an error;
// mints are immutable once registered.
func (ts *TokenState) CreateMint(address, symbol string, decimals uint8) (*Mint, error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	if _, ok := ts.mints[address]; ok {
		return nil, fmt.Errorf("mint %s already exists", address)
	}

	mint := &Mint{Address: address, Symbol: symbol, Decimals: decimals}
	ts.mints[address] = mint
	ts.balances[address] = make(map[string]uint64)

	return mint, nil
}

func (ts *TokenState) GetMint(address string) (*Mint, bool) {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	mint, ok := ts.mints[address]
	return mint, ok
}

// MintTo issues new tokens on a mint to an owner.
func (ts *TokenState) MintTo(mint, owner string, amount uint64) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	m, ok := ts.mints[mint]
	if !ok {
		return fmt.Errorf("mint %s does not exist", mint)
	}

	if m.Supply+amount < m.Supply {
		return fmt.Errorf("token supply overflow on mint %s", mint)
	}

	m.Supply += amount
	ts.balances[mint][owner] += amount

	return nil
}

// Transfer moves tokens between owners on one mint.
func (ts *TokenState) Transfer(mint, from, to string, amount uint64) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	book, ok := ts.balances[mint]
	if !ok {
		return fmt.Errorf("mint %s does not exist", mint)
	}

	if book[from] < amount {
		return fmt.Errorf("insufficient token balance for %s on mint %s", from, mint)
	}

	if book[to]+amount < book[to] {
		return fmt.Errorf("token balance overflow for %s on mint %s", to, mint)
	}

	book[from] -= amount
	book[to] += amount

	return nil
}

func (ts *TokenState) Balance(mint, owner string) uint64 {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	if book, ok := ts.balances[mint]; ok {
		return book[owner]
	}
	return 0
}

func (ts *TokenState) Supply(mint string) uint64 {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	if m, ok := ts.mints[mint]; ok {
		return m.Supply
	}
	return 0
}
