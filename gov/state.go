package gov

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/BOCK-CHAIN/BallotChain/types"
)

// Account name limits enforced at creation.
const (
	MaxDAONameLen             = 32
	MaxProposalTitleLen       = 128
	MaxProposalDescriptionLen = 1024
)

// DAOAccount holds the immutable governance parameters of one DAO. Only
// ProposalCount mutates after initialization.
type DAOAccount struct {
	Address             types.Hash
	Authority           crypto.PublicKey
	Name                string
	GovernanceTokenMint string
	QuorumPercentage    uint8
	MinTokensToVote     uint64
	RevealWindowSecs    int64
	ExecutionDelaySecs  int64
	VotingMode          VotingMode
	ProposalCount       uint64
	MigratedFrom        types.Hash
}

// ProposalAccount tracks one proposal through its full lifecycle. Tallies
// stay zero until reveals begin; ExecutionUnlocksAt stays zero until a
// passing finalize.
type ProposalAccount struct {
	Address            types.Hash
	DAO                types.Hash
	Proposer           crypto.PublicKey
	ProposalID         uint64
	Title              string
	Description        string
	Status             ProposalStatus
	CreatedAt          int64
	VotingEnd          int64
	RevealEnd          int64
	YesCapital         uint64
	NoCapital          uint64
	YesCommunity       uint64
	NoCommunity        uint64
	CommitCount        uint64
	RevealCount        uint64
	TreasuryAction     *TreasuryAction
	ExecutionUnlocksAt int64
	IsExecuted         bool
	MetadataHash       types.Hash
}

// VoterRecord binds one voter's commitment and weight snapshot to a
// proposal. Revealed flips false to true exactly once.
type VoterRecord struct {
	Address         types.Hash
	Proposal        types.Hash
	Voter           crypto.PublicKey
	Commitment      types.Hash
	WeightCapital   uint64
	WeightCommunity uint64
	RevealAuthority crypto.PublicKey
	Revealed        bool
}

// DelegationRecord grants a delegator's snapshotted weight to a delegatee
// for one proposal. IsUsed flips once when the delegatee folds it in.
type DelegationRecord struct {
	Address            types.Hash
	Proposal           types.Hash
	Delegator          crypto.PublicKey
	Delegatee          crypto.PublicKey
	DelegatedCapital   uint64
	DelegatedCommunity uint64
	IsUsed             bool
}

// TreasuryAccount is the DAO's asset-holding account. Lamports live in the
// native ledger at Address; token holdings are booked under Authority() on
// each mint.
type TreasuryAccount struct {
	Address types.Hash
	DAO     types.Hash
}

// Authority is the owner key under which the treasury's token balances are
// booked.
func (t *TreasuryAccount) Authority() string {
	return t.Address.String()
}

// VoterWeightRecord is the exported plugin surface: a single-valued weight
// with a slot-bounded expiry.
type VoterWeightRecord struct {
	Address             types.Hash
	Realm               types.Hash
	GoverningTokenMint  string
	GoverningTokenOwner crypto.PublicKey
	VoterWeight         uint64
	VoterWeightExpiry   uint64
	WeightAction        WeightAction
	WeightActionTarget  types.Hash
}

// GovernanceState is the program-owned account store. The host ledger
// serializes access per transaction; the engine mutates it only after all
// validation passed.
type GovernanceState struct {
	DAOs          map[types.Hash]*DAOAccount
	Proposals     map[types.Hash]*ProposalAccount
	VoterRecords  map[types.Hash]*VoterRecord
	Delegations   map[types.Hash]*DelegationRecord
	Treasuries    map[types.Hash]*TreasuryAccount
	WeightRecords map[types.Hash]*VoterWeightRecord
}

func NewGovernanceState() *GovernanceState {
	return &GovernanceState{
		DAOs:          make(map[types.Hash]*DAOAccount),
		Proposals:     make(map[types.Hash]*ProposalAccount),
		VoterRecords:  make(map[types.Hash]*VoterRecord),
		Delegations:   make(map[types.Hash]*DelegationRecord),
		Treasuries:    make(map[types.Hash]*TreasuryAccount),
		WeightRecords: make(map[types.Hash]*VoterWeightRecord),
	}
}

// deriveAddress hashes a labeled, length-delimited seed tuple. The length
// prefixes keep distinct tuples from colliding under concatenation.
func deriveAddress(seeds ...[]byte) types.Hash {
	h := sha256.New()
	for _, seed := range seeds {
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(len(seed)))
		h.Write(l[:])
		h.Write(seed)
	}
	return types.HashFromBytes(h.Sum(nil))
}

func le8(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func DAOAddress(authority crypto.PublicKey, name string) types.Hash {
	return deriveAddress([]byte("dao"), authority, []byte(name))
}

func ProposalAddress(dao types.Hash, proposalID uint64) types.Hash {
	return deriveAddress([]byte("proposal"), dao.ToSlice(), le8(proposalID))
}

func VoterRecordAddress(proposal types.Hash, voter crypto.PublicKey) types.Hash {
	return deriveAddress([]byte("vote"), proposal.ToSlice(), voter)
}

func DelegationAddress(proposal types.Hash, delegator crypto.PublicKey) types.Hash {
	return deriveAddress([]byte("delegation"), proposal.ToSlice(), delegator)
}

func TreasuryAddress(dao types.Hash) types.Hash {
	return deriveAddress([]byte("treasury"), dao.ToSlice())
}

func VoterWeightRecordAddress(dao types.Hash, owner crypto.PublicKey) types.Hash {
	return deriveAddress([]byte("voter-weight"), dao.ToSlice(), owner)
}

// GetDAO returns the DAO at the derived address for (authority, name).
func (s *GovernanceState) GetDAO(addr types.Hash) (*DAOAccount, error) {
	dao, ok := s.DAOs[addr]
	if !ok {
		return nil, ErrDAONotFound
	}
	return dao, nil
}

// GetProposal resolves a proposal by DAO address and sequence id.
func (s *GovernanceState) GetProposal(dao types.Hash, proposalID uint64) (*ProposalAccount, error) {
	proposal, ok := s.Proposals[ProposalAddress(dao, proposalID)]
	if !ok {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}

func (s *GovernanceState) GetTreasury(dao types.Hash) (*TreasuryAccount, error) {
	treasury, ok := s.Treasuries[TreasuryAddress(dao)]
	if !ok {
		return nil, ErrDAONotFound
	}
	return treasury, nil
}
