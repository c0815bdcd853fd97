package gov

import (
	"bytes"
	"fmt"

	"github.com/BOCK-CHAIN/BallotChain/core"
	"github.com/BOCK-CHAIN/BallotChain/crypto"
)

// Validator performs every precondition check before the processor mutates
// state. A validation error means the instruction aborts untouched.
type Validator struct {
	state  *GovernanceState
	tokens *core.TokenState
}

func NewValidator(state *GovernanceState, tokens *core.TokenState) *Validator {
	return &Validator{
		state:  state,
		tokens: tokens,
	}
}

// ValidateInitializeDAO checks the immutable DAO parameters.
func (v *Validator) ValidateInitializeDAO(tx *InitializeDAOTx, authority crypto.PublicKey) error {
	if len(authority) == 0 {
		return ErrUnauthorized
	}

	if len(tx.Name) == 0 || len(tx.Name) > MaxDAONameLen {
		return NewGovError(ErrCodeInvalidConfig,
			fmt.Sprintf("DAO name must be between 1 and %d characters", MaxDAONameLen), nil)
	}

	if tx.QuorumPercentage < 1 || tx.QuorumPercentage > 100 {
		return NewGovError(ErrCodeInvalidConfig, "quorum percentage must be between 1 and 100", nil)
	}

	if tx.RevealWindowSecs < 1 {
		return NewGovError(ErrCodeInvalidConfig, "reveal window must be at least one second", nil)
	}

	if tx.ExecutionDelaySecs < 0 {
		return NewGovError(ErrCodeInvalidConfig, "execution delay cannot be negative", nil)
	}

	if len(tx.GovernanceTokenMint) == 0 {
		return NewGovError(ErrCodeInvalidConfig, "governance token mint is required", nil)
	}

	if _, ok := v.tokens.GetMint(tx.GovernanceTokenMint); !ok {
		return NewGovError(ErrCodeInvalidConfig, "governance token mint does not exist", nil)
	}

	switch tx.VotingMode.Kind {
	case ModeTokenWeighted, ModeQuadratic:
	case ModeDualChamber:
		if tx.VotingMode.CapitalThreshold < 1 || tx.VotingMode.CapitalThreshold > 100 {
			return NewGovError(ErrCodeInvalidConfig, "capital threshold must be between 1 and 100", nil)
		}
		if tx.VotingMode.CommunityThreshold < 1 || tx.VotingMode.CommunityThreshold > 100 {
			return NewGovError(ErrCodeInvalidConfig, "community threshold must be between 1 and 100", nil)
		}
	default:
		return NewGovError(ErrCodeInvalidConfig, "unknown voting mode", nil)
	}

	return nil
}

// ValidateCreateProposal checks authority, lengths and the treasury action
// invariants.
func (v *Validator) ValidateCreateProposal(tx *CreateProposalTx, dao *DAOAccount, authority crypto.PublicKey) error {
	if !bytes.Equal(dao.Authority, authority) {
		return ErrUnauthorized
	}

	if len(tx.Title) == 0 || len(tx.Title) > MaxProposalTitleLen {
		return NewGovError(ErrCodeInvalidConfig,
			fmt.Sprintf("proposal title must be between 1 and %d characters", MaxProposalTitleLen), nil)
	}

	if len(tx.Description) > MaxProposalDescriptionLen {
		return NewGovError(ErrCodeInvalidConfig,
			fmt.Sprintf("proposal description must be at most %d characters", MaxProposalDescriptionLen), nil)
	}

	if tx.DurationSecs <= 0 {
		return NewGovError(ErrCodeInvalidConfig, "voting duration must be positive", nil)
	}

	if tx.TreasuryAction != nil {
		if err := v.validateTreasuryAction(tx.TreasuryAction, dao); err != nil {
			return err
		}
	}

	return nil
}

func (v *Validator) validateTreasuryAction(action *TreasuryAction, dao *DAOAccount) error {
	if action.AmountLamports == 0 {
		return NewGovError(ErrCodeInvalidTreasuryAction, "treasury amount must be greater than zero", nil)
	}

	if len(action.Recipient) == 0 {
		return NewGovError(ErrCodeInvalidTreasuryAction, "treasury recipient is required", nil)
	}

	treasury := TreasuryAddress(dao.Address)
	if action.Recipient.Identity() == treasury {
		return NewGovError(ErrCodeInvalidTreasuryAction, "treasury cannot be its own recipient", nil)
	}

	switch action.Kind {
	case ActionSendSol, ActionCustomCPI:
		if len(action.TokenMint) != 0 {
			return NewGovError(ErrCodeInvalidTreasuryAction, "token mint must be absent for this action kind", nil)
		}
	case ActionSendToken:
		if len(action.TokenMint) == 0 {
			return ErrTokenMintRequired
		}
		if _, ok := v.tokens.GetMint(action.TokenMint); !ok {
			return NewGovError(ErrCodeInvalidTreasuryAction, "treasury action mint does not exist", nil)
		}
	default:
		return NewGovError(ErrCodeInvalidTreasuryAction, "unknown treasury action kind", nil)
	}

	return nil
}

// ValidateCommitVote gates ballot commitments: commit window open, balance
// above the DAO floor, no prior commitment or delegation by this voter.
func (v *Validator) ValidateCommitVote(tx *CommitVoteTx, dao *DAOAccount, proposal *ProposalAccount, voter crypto.PublicKey, now int64) error {
	if err := requireCommitOpen(proposal, now); err != nil {
		return err
	}

	if tx.Commitment.IsZero() {
		return NewGovError(ErrCodeInvalidConfig, "commitment cannot be all zeros", nil)
	}

	if _, ok := v.state.VoterRecords[VoterRecordAddress(proposal.Address, voter)]; ok {
		return ErrAlreadyCommitted
	}

	if _, ok := v.state.Delegations[DelegationAddress(proposal.Address, voter)]; ok {
		return ErrAlreadyDelegated
	}

	balance := v.tokens.Balance(dao.GovernanceTokenMint, voter.String())
	if balance < dao.MinTokensToVote {
		return NewGovError(ErrCodeInsufficientBalance,
			fmt.Sprintf("balance %d below voting minimum %d", balance, dao.MinTokensToVote), nil)
	}

	return nil
}

// ValidateDelegateVote gates weight grants: commit window open, no self
// delegation, delegator neither committed nor already delegated.
func (v *Validator) ValidateDelegateVote(tx *DelegateVoteTx, dao *DAOAccount, proposal *ProposalAccount, delegator crypto.PublicKey, now int64) error {
	if err := requireCommitOpen(proposal, now); err != nil {
		return err
	}

	if len(tx.Delegatee) == 0 || bytes.Equal(tx.Delegatee, delegator) {
		return NewGovError(ErrCodeInvalidConfig, "cannot delegate to self", nil)
	}

	if _, ok := v.state.VoterRecords[VoterRecordAddress(proposal.Address, delegator)]; ok {
		return ErrAlreadyCommitted
	}

	if _, ok := v.state.Delegations[DelegationAddress(proposal.Address, delegator)]; ok {
		return ErrAlreadyDelegated
	}

	balance := v.tokens.Balance(dao.GovernanceTokenMint, delegator.String())
	if balance < dao.MinTokensToVote {
		return NewGovError(ErrCodeInsufficientBalance,
			fmt.Sprintf("balance %d below voting minimum %d", balance, dao.MinTokensToVote), nil)
	}

	return nil
}

// ValidateCommitDelegatedVote gates the delegatee's folding commitment.
// The referenced delegation must exist, target the signer, and be unused.
func (v *Validator) ValidateCommitDelegatedVote(tx *CommitDelegatedVoteTx, dao *DAOAccount, proposal *ProposalAccount, delegatee crypto.PublicKey, now int64) (*DelegationRecord, error) {
	if err := requireCommitOpen(proposal, now); err != nil {
		return nil, err
	}

	if tx.Commitment.IsZero() {
		return nil, NewGovError(ErrCodeInvalidConfig, "commitment cannot be all zeros", nil)
	}

	delegation, ok := v.state.Delegations[DelegationAddress(proposal.Address, tx.Delegator)]
	if !ok {
		return nil, ErrDelegationNotFound
	}

	if !bytes.Equal(delegation.Delegatee, delegatee) {
		return nil, ErrUnauthorized
	}

	if delegation.IsUsed {
		return nil, ErrDelegationAlreadyUsed
	}

	// A delegatee opening a fresh record must clear the voting floor like
	// any other committer; folding into an existing record does not
	// re-check it.
	if _, ok := v.state.VoterRecords[VoterRecordAddress(proposal.Address, delegatee)]; !ok {
		balance := v.tokens.Balance(dao.GovernanceTokenMint, delegatee.String())
		if balance < dao.MinTokensToVote {
			return nil, NewGovError(ErrCodeInsufficientBalance,
				fmt.Sprintf("balance %d below voting minimum %d", balance, dao.MinTokensToVote), nil)
		}
	}

	return delegation, nil
}

// ValidateRevealVote gates reveals: window open, record unrevealed, signer
// authorized, preimage matches the stored commitment.
func (v *Validator) ValidateRevealVote(tx *RevealVoteTx, proposal *ProposalAccount, revealer crypto.PublicKey, now int64) (*VoterRecord, error) {
	if err := requireRevealOpen(proposal, now); err != nil {
		return nil, err
	}

	if !tx.Vote.Valid() {
		return nil, NewGovError(ErrCodeInvalidConfig, "vote must be yes or no", nil)
	}

	record, ok := v.state.VoterRecords[VoterRecordAddress(proposal.Address, tx.Voter)]
	if !ok {
		return nil, ErrVoterRecordNotFound
	}

	if record.Revealed {
		return nil, ErrAlreadyRevealed
	}

	authorized := bytes.Equal(revealer, record.Voter)
	if !authorized && len(record.RevealAuthority) != 0 {
		authorized = bytes.Equal(revealer, record.RevealAuthority)
	}
	if !authorized {
		return nil, ErrNotAuthorizedToReveal
	}

	expected := ComputeCommitment(tx.Vote, tx.Salt, record.Voter.Identity())
	if !CommitmentsEqual(expected, record.Commitment) {
		return nil, ErrCommitmentMismatch
	}

	return record, nil
}

// ValidateCancelProposal allows the authority to collapse a proposal only
// while the commit window is still open.
func (v *Validator) ValidateCancelProposal(dao *DAOAccount, proposal *ProposalAccount, authority crypto.PublicKey, now int64) error {
	if !bytes.Equal(dao.Authority, authority) {
		return ErrUnauthorized
	}

	if proposal.Status != StatusVoting || now >= proposal.VotingEnd {
		return ErrCancelOnlyDuringVoting
	}

	return nil
}

// ValidateVetoProposal allows the authority to collapse a passed proposal
// only while its timelock is running.
func (v *Validator) ValidateVetoProposal(dao *DAOAccount, proposal *ProposalAccount, authority crypto.PublicKey, now int64) error {
	if !bytes.Equal(dao.Authority, authority) {
		return ErrUnauthorized
	}

	if proposal.Status != StatusPassed || now >= proposal.ExecutionUnlocksAt {
		return ErrVetoOnlyDuringTimelock
	}

	return nil
}
