package core

import (
	"fmt"
	"sync"

	"github.com/BOCK-CHAIN/BallotChain/types"
	"github.com/go-kit/log"
)

// Rent parameters of the host ledger: an account must hold two byte-years
// of rent to stay exempt from reaping.
const (
	lamportsPerByteYear    = 3480
	accountStorageOverhead = 128
	rentExemptYears        = 2
)

// RentExemptMinimum returns the lamport floor an account with the given
// data length must keep to stay live.
func RentExemptMinimum(dataLen int) uint64 {
	return uint64(accountStorageOverhead+dataLen) * lamportsPerByteYear * rentExemptYears
}

// Account is a lamport-bearing entry in the ledger. DataLen records the
// serialized size of whatever the owning program stores at this address,
// which fixes the account's rent floor.
type Account struct {
	Address  types.Hash
	Lamports uint64
	DataLen  int
}

// Ledger emulates the host chain's native account store: lamport balances
// at deterministic addresses, serialized mutation, atomic transfers.
type Ledger struct {
	logger log.Logger

	lock     sync.RWMutex
	accounts map[types.Hash]*Account
}

func NewLedger(l log.Logger) *Ledger {
	return &Ledger{
		logger:   l,
		accounts: make(map[types.Hash]*Account),
	}
}

// CreateAccount registers an account with the given data length. Creating
// an existing address is a no-op so deterministic-address callers can be
// idempotent.
func (l *Ledger) CreateAccount(addr types.Hash, dataLen int) *Account {
	l.lock.Lock()
	defer l.lock.Unlock()

	if acc, ok := l.accounts[addr]; ok {
		return acc
	}

	acc := &Account{Address: addr, DataLen: dataLen}
	l.accounts[addr] = acc

	return acc
}

func (l *Ledger) Balance(addr types.Hash) uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()

	if acc, ok := l.accounts[addr]; ok {
		return acc.Lamports
	}
	return 0
}

// Fund credits lamports without a source account. Used for deposits coming
// from outside the emulated ledger (test faucets, devnet funding).
func (l *Ledger) Fund(addr types.Hash, lamports uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		acc = &Account{Address: addr}
		l.accounts[addr] = acc
	}

	if acc.Lamports+lamports < acc.Lamports {
		return fmt.Errorf("lamport balance overflow on %s", addr)
	}
	acc.Lamports += lamports

	l.logger.Log("msg", "funded account", "address", addr, "lamports", lamports)

	return nil
}

// Transfer moves lamports between two accounts atomically: either both
// sides move or neither does.
func (l *Ledger) Transfer(from, to types.Hash, lamports uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	src, ok := l.accounts[from]
	if !ok || src.Lamports < lamports {
		return fmt.Errorf("insufficient lamports in %s", from)
	}

	dst, ok := l.accounts[to]
	if !ok {
		dst = &Account{Address: to}
		l.accounts[to] = dst
	}

	if dst.Lamports+lamports < dst.Lamports {
		return fmt.Errorf("lamport balance overflow on %s", to)
	}

	src.Lamports -= lamports
	dst.Lamports += lamports

	return nil
}

// TransferIfAboveFloor moves lamports only if the source stays at or above
// the given floor after the debit. Returns whether the transfer happened.
func (l *Ledger) TransferIfAboveFloor(from, to types.Hash, lamports, floor uint64) (bool, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	src, ok := l.accounts[from]
	if !ok || src.Lamports < lamports || src.Lamports-lamports < floor {
		return false, nil
	}

	dst, ok := l.accounts[to]
	if !ok {
		dst = &Account{Address: to}
		l.accounts[to] = dst
	}

	if dst.Lamports+lamports < dst.Lamports {
		return false, fmt.Errorf("lamport balance overflow on %s", to)
	}

	src.Lamports -= lamports
	dst.Lamports += lamports

	return true, nil
}
