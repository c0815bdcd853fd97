package gov

import (
	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/BOCK-CHAIN/BallotChain/types"
)

// ProposalStatus represents the current state of a proposal.
type ProposalStatus byte

const (
	StatusVoting    ProposalStatus = 0x01
	StatusPassed    ProposalStatus = 0x02
	StatusFailed    ProposalStatus = 0x03
	StatusCancelled ProposalStatus = 0x04
	StatusVetoed    ProposalStatus = 0x05
)

// Terminal reports whether the status can never transition again.
// Passed is not terminal: it still awaits execute or veto.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case StatusFailed, StatusCancelled, StatusVetoed:
		return true
	}
	return false
}

func (s ProposalStatus) String() string {
	switch s {
	case StatusVoting:
		return "Voting"
	case StatusPassed:
		return "Passed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	case StatusVetoed:
		return "Vetoed"
	default:
		return "Unknown"
	}
}

// Vote is the plaintext ballot direction. The wire value doubles as the
// commitment preimage byte.
type Vote byte

const (
	VoteNo  Vote = 0x00
	VoteYes Vote = 0x01
)

func (v Vote) Valid() bool {
	return v == VoteNo || v == VoteYes
}

// VotingModeKind selects the aggregation rule applied at finalize.
type VotingModeKind byte

const (
	ModeTokenWeighted VotingModeKind = 0x01
	ModeQuadratic     VotingModeKind = 0x02
	ModeDualChamber   VotingModeKind = 0x03
)

// VotingMode carries the aggregation kind plus the per-chamber percentage
// thresholds used by DualChamber. Thresholds are ignored for the other two
// kinds.
type VotingMode struct {
	Kind               VotingModeKind
	CapitalThreshold   uint8
	CommunityThreshold uint8
}

// TreasuryActionKind selects what a passing proposal does to the treasury.
type TreasuryActionKind byte

const (
	ActionSendSol   TreasuryActionKind = 0x01
	ActionSendToken TreasuryActionKind = 0x02
	ActionCustomCPI TreasuryActionKind = 0x03
)

// TreasuryAction is the optional on-pass effect attached to a proposal.
// TokenMint is empty for SendSol and CustomCPI, required for SendToken.
type TreasuryAction struct {
	Kind           TreasuryActionKind
	AmountLamports uint64
	Recipient      crypto.PublicKey
	TokenMint      string
}

// WeightAction tags the intended consumer operation on an exported voter
// weight record.
type WeightAction byte

const (
	WeightActionNone           WeightAction = 0x00
	WeightActionCastVote       WeightAction = 0x01
	WeightActionCreateProposal WeightAction = 0x02
)

// Instruction inputs. The signer is passed alongside the struct by the
// processor, mirroring the host's signed caller set.

// InitializeDAOTx creates a DAO with immutable governance parameters.
type InitializeDAOTx struct {
	Name                string
	GovernanceTokenMint string
	QuorumPercentage    uint8
	MinTokensToVote     uint64
	RevealWindowSecs    int64
	ExecutionDelaySecs  int64
	VotingMode          VotingMode
}

// MigrateFromRealmsTx is InitializeDAOTx plus a provenance identifier for
// the source governance account. Non-destructive.
type MigrateFromRealmsTx struct {
	InitializeDAOTx
	SourceGovernance types.Hash
}

// CreateProposalTx opens a proposal on a DAO. MetadataHash optionally
// points at IPFS-hosted rich metadata and carries no engine semantics.
type CreateProposalTx struct {
	DAO            types.Hash
	Title          string
	Description    string
	DurationSecs   int64
	TreasuryAction *TreasuryAction
	MetadataHash   types.Hash
}

type CancelProposalTx struct {
	DAO        types.Hash
	ProposalID uint64
}

type VetoProposalTx struct {
	DAO        types.Hash
	ProposalID uint64
}

// CommitVoteTx binds an opaque commitment for the signer. RevealAuthority,
// when set, may later submit the reveal on the voter's behalf.
type CommitVoteTx struct {
	DAO             types.Hash
	ProposalID      uint64
	Commitment      types.Hash
	RevealAuthority crypto.PublicKey
}

// DelegateVoteTx grants the signer's snapshotted weight to a delegatee for
// one proposal. The delegator gives up their own ballot by delegating.
type DelegateVoteTx struct {
	DAO        types.Hash
	ProposalID uint64
	Delegatee  crypto.PublicKey
}

// CommitDelegatedVoteTx is the delegatee's commitment folding in exactly
// one delegation, identified by its delegator.
type CommitDelegatedVoteTx struct {
	DAO             types.Hash
	ProposalID      uint64
	Commitment      types.Hash
	RevealAuthority crypto.PublicKey
	Delegator       crypto.PublicKey
}

// RevealVoteTx publishes the plaintext ballot for a voter record. The
// signer must be the voter or the record's reveal authority.
type RevealVoteTx struct {
	DAO        types.Hash
	ProposalID uint64
	Voter      crypto.PublicKey
	Vote       Vote
	Salt       [32]byte
}

type FinalizeProposalTx struct {
	DAO        types.Hash
	ProposalID uint64
}

// ExecuteProposalTx supplies the accounts the executor checks against the
// recorded treasury action: the claimed recipient, the claimed destination
// mint (SendToken), and the claimed source token owner.
type ExecuteProposalTx struct {
	DAO         types.Hash
	ProposalID  uint64
	Recipient   crypto.PublicKey
	TokenMint   string
	SourceOwner string
}

type DepositTreasuryTx struct {
	DAO            types.Hash
	AmountLamports uint64
}

// UpdateVoterWeightRecordTx stamps a plugin-consumable weight record for
// the signer from their current balance.
type UpdateVoterWeightRecordTx struct {
	DAO          types.Hash
	WeightAction WeightAction
	ActionTarget types.Hash
}
