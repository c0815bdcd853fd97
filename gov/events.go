package gov

import (
	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/BOCK-CHAIN/BallotChain/types"
)

// Event type identifiers emitted for indexers.
const (
	EventTypeProposalCreated    = "gov.proposal_created"
	EventTypeVoteCommitted      = "gov.vote_committed"
	EventTypeVoteDelegated      = "gov.vote_delegated"
	EventTypeVoteRevealed       = "gov.vote_revealed"
	EventTypeProposalFinalized  = "gov.proposal_finalized"
	EventTypeProposalExecuted   = "gov.proposal_executed"
	EventTypeProposalCancelled  = "gov.proposal_cancelled"
	EventTypeProposalVetoed     = "gov.proposal_vetoed"
	EventTypeCustomCPIRequested = "gov.custom_cpi_requested"
)

// Event is one emitted record: a stable type string plus a typed payload.
type Event struct {
	Type string
	Data interface{}
}

// Emitter receives engine events. Implementations must not block; the
// engine emits after the owning mutation is complete.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter drops every event.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

type ProposalCreatedEvent struct {
	DAO        types.Hash       `json:"dao"`
	Proposal   types.Hash       `json:"proposal"`
	ProposalID uint64           `json:"proposal_id"`
	Proposer   crypto.PublicKey `json:"proposer"`
	Title      string           `json:"title"`
	VotingEnd  int64            `json:"voting_end"`
	RevealEnd  int64            `json:"reveal_end"`
}

type VoteCommittedEvent struct {
	Proposal types.Hash       `json:"proposal"`
	Voter    crypto.PublicKey `json:"voter"`
}

type VoteDelegatedEvent struct {
	Proposal        types.Hash       `json:"proposal"`
	Delegator       crypto.PublicKey `json:"delegator"`
	Delegatee       crypto.PublicKey `json:"delegatee"`
	WeightCapital   uint64           `json:"weight_capital"`
	WeightCommunity uint64           `json:"weight_community"`
}

type VoteRevealedEvent struct {
	Proposal types.Hash       `json:"proposal"`
	Voter    crypto.PublicKey `json:"voter"`
	Vote     Vote             `json:"vote"`
}

type ProposalFinalizedEvent struct {
	Proposal           types.Hash     `json:"proposal"`
	Status             ProposalStatus `json:"status"`
	ExecutionUnlocksAt int64          `json:"execution_unlocks_at"`
}

type ProposalExecutedEvent struct {
	Proposal types.Hash `json:"proposal"`
}

type ProposalCancelledEvent struct {
	Proposal types.Hash `json:"proposal"`
}

type ProposalVetoedEvent struct {
	Proposal types.Hash `json:"proposal"`
}

// CustomCPIRequestedEvent describes the action an off-chain relayer is
// expected to enact. The relayer is a trust boundary, not a protocol
// guarantee; the engine only records the request and enforces local
// idempotence.
type CustomCPIRequestedEvent struct {
	Proposal       types.Hash       `json:"proposal"`
	Recipient      crypto.PublicKey `json:"recipient"`
	AmountLamports uint64           `json:"amount_lamports"`
}
