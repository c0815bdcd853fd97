package gov

import (
	"github.com/BOCK-CHAIN/BallotChain/core"
	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/go-kit/log"
)

// RevealRebateLamports is the fixed reveal incentive: one-thousandth of
// the native unit's common denomination, paid from the proposal account
// when doing so keeps it rent-exempt.
const RevealRebateLamports = 1_000_000

// Processor applies governance instructions against the account store.
// Every handler validates first and mutates only after all checks pass,
// so a returned error always means no state change.
type Processor struct {
	state     *GovernanceState
	native    *core.Ledger
	tokens    *core.TokenState
	validator *Validator
	clock     core.Clock
	logger    log.Logger
	emitter   Emitter
}

func NewProcessor(state *GovernanceState, native *core.Ledger, tokens *core.TokenState, clock core.Clock, logger log.Logger) *Processor {
	return &Processor{
		state:     state,
		native:    native,
		tokens:    tokens,
		validator: NewValidator(state, tokens),
		clock:     clock,
		logger:    logger,
		emitter:   NoopEmitter{},
	}
}

// SetEmitter installs an event sink for indexers.
func (p *Processor) SetEmitter(e Emitter) {
	if e == nil {
		e = NoopEmitter{}
	}
	p.emitter = e
}

// ProcessInitializeDAO creates a DAO and its treasury account at their
// derived addresses.
func (p *Processor) ProcessInitializeDAO(tx *InitializeDAOTx, authority crypto.PublicKey) (*DAOAccount, error) {
	if err := p.validator.ValidateInitializeDAO(tx, authority); err != nil {
		return nil, err
	}

	addr := DAOAddress(authority, tx.Name)
	if _, ok := p.state.DAOs[addr]; ok {
		return nil, ErrAlreadyInitialized
	}

	dao := &DAOAccount{
		Address:             addr,
		Authority:           authority,
		Name:                tx.Name,
		GovernanceTokenMint: tx.GovernanceTokenMint,
		QuorumPercentage:    tx.QuorumPercentage,
		MinTokensToVote:     tx.MinTokensToVote,
		RevealWindowSecs:    tx.RevealWindowSecs,
		ExecutionDelaySecs:  tx.ExecutionDelaySecs,
		VotingMode:          tx.VotingMode,
	}
	p.state.DAOs[addr] = dao

	treasury := &TreasuryAccount{
		Address: TreasuryAddress(addr),
		DAO:     addr,
	}
	p.state.Treasuries[treasury.Address] = treasury
	p.native.CreateAccount(treasury.Address, len(EncodeTreasury(treasury)))

	p.logger.Log("msg", "initialized DAO", "address", addr, "name", tx.Name, "mode", tx.VotingMode.Kind)

	return dao, nil
}

// ProcessMigrateFromRealms is initialize with a recorded provenance
// identifier. Nothing is consumed from the source governance.
func (p *Processor) ProcessMigrateFromRealms(tx *MigrateFromRealmsTx, authority crypto.PublicKey) (*DAOAccount, error) {
	if tx.SourceGovernance.IsZero() {
		return nil, NewGovError(ErrCodeInvalidConfig, "source governance identifier is required", nil)
	}

	dao, err := p.ProcessInitializeDAO(&tx.InitializeDAOTx, authority)
	if err != nil {
		return nil, err
	}

	dao.MigratedFrom = tx.SourceGovernance

	p.logger.Log("msg", "recorded migration provenance", "dao", dao.Address, "source", tx.SourceGovernance)

	return dao, nil
}

// ProcessCreateProposal opens a proposal, assigns it the DAO's next
// sequence id and funds its account to the rent-exempt floor.
func (p *Processor) ProcessCreateProposal(tx *CreateProposalTx, authority crypto.PublicKey) (*ProposalAccount, error) {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return nil, err
	}

	if err := p.validator.ValidateCreateProposal(tx, dao, authority); err != nil {
		return nil, err
	}

	now := p.clock.Unix()
	proposalID := dao.ProposalCount
	addr := ProposalAddress(dao.Address, proposalID)

	proposal := &ProposalAccount{
		Address:        addr,
		DAO:            dao.Address,
		Proposer:       authority,
		ProposalID:     proposalID,
		Title:          tx.Title,
		Description:    tx.Description,
		Status:         StatusVoting,
		CreatedAt:      now,
		VotingEnd:      now + tx.DurationSecs,
		RevealEnd:      now + tx.DurationSecs + dao.RevealWindowSecs,
		TreasuryAction: tx.TreasuryAction,
		MetadataHash:   tx.MetadataHash,
	}
	dataLen := len(EncodeProposal(proposal))
	p.native.CreateAccount(addr, dataLen)
	if err := p.native.Fund(addr, core.RentExemptMinimum(dataLen)); err != nil {
		return nil, ErrArithmeticOverflow
	}

	p.state.Proposals[addr] = proposal
	dao.ProposalCount++

	p.logger.Log("msg", "created proposal", "proposal", addr, "id", proposalID, "voting_end", proposal.VotingEnd)
	p.emitter.Emit(Event{Type: EventTypeProposalCreated, Data: ProposalCreatedEvent{
		DAO:        dao.Address,
		Proposal:   addr,
		ProposalID: proposalID,
		Proposer:   authority,
		Title:      tx.Title,
		VotingEnd:  proposal.VotingEnd,
		RevealEnd:  proposal.RevealEnd,
	}})

	return proposal, nil
}

// ProcessCommitVote creates the voter's record with an opaque commitment
// and a weight snapshot of their current balance. Weight snapshotting at
// commit time neutralizes buy-vote-sell: later token movement does not
// touch this voter's contribution.
func (p *Processor) ProcessCommitVote(tx *CommitVoteTx, voter crypto.PublicKey) (*VoterRecord, error) {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return nil, err
	}

	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return nil, err
	}

	now := p.clock.Unix()
	if err := p.validator.ValidateCommitVote(tx, dao, proposal, voter, now); err != nil {
		return nil, err
	}

	balance := p.tokens.Balance(dao.GovernanceTokenMint, voter.String())
	capital, community := ModeWeights(balance, dao.VotingMode)

	commits, err := checkedAdd(proposal.CommitCount, 1)
	if err != nil {
		return nil, err
	}

	record := &VoterRecord{
		Address:         VoterRecordAddress(proposal.Address, voter),
		Proposal:        proposal.Address,
		Voter:           voter,
		Commitment:      tx.Commitment,
		WeightCapital:   capital,
		WeightCommunity: community,
		RevealAuthority: tx.RevealAuthority,
	}
	p.state.VoterRecords[record.Address] = record
	proposal.CommitCount = commits

	p.logger.Log("msg", "committed ballot", "proposal", proposal.Address, "voter", voter, "commits", commits)
	p.emitter.Emit(Event{Type: EventTypeVoteCommitted, Data: VoteCommittedEvent{
		Proposal: proposal.Address,
		Voter:    voter,
	}})

	return record, nil
}

// ProcessDelegateVote records a delegator's weight grant for one proposal.
// The delegator forfeits their own ballot; the delegatee learns only the
// weight, never a vote direction.
func (p *Processor) ProcessDelegateVote(tx *DelegateVoteTx, delegator crypto.PublicKey) (*DelegationRecord, error) {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return nil, err
	}

	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return nil, err
	}

	now := p.clock.Unix()
	if err := p.validator.ValidateDelegateVote(tx, dao, proposal, delegator, now); err != nil {
		return nil, err
	}

	balance := p.tokens.Balance(dao.GovernanceTokenMint, delegator.String())
	capital, community := ModeWeights(balance, dao.VotingMode)

	delegation := &DelegationRecord{
		Address:            DelegationAddress(proposal.Address, delegator),
		Proposal:           proposal.Address,
		Delegator:          delegator,
		Delegatee:          tx.Delegatee,
		DelegatedCapital:   capital,
		DelegatedCommunity: community,
	}
	p.state.Delegations[delegation.Address] = delegation

	p.logger.Log("msg", "delegated weight", "proposal", proposal.Address, "delegator", delegator, "delegatee", tx.Delegatee)
	p.emitter.Emit(Event{Type: EventTypeVoteDelegated, Data: VoteDelegatedEvent{
		Proposal:        proposal.Address,
		Delegator:       delegator,
		Delegatee:       tx.Delegatee,
		WeightCapital:   capital,
		WeightCommunity: community,
	}})

	return delegation, nil
}

// ProcessCommitDelegatedVote folds exactly one delegation into the
// delegatee's record. A fresh record snapshots the delegatee's own balance
// too; folding into an existing record adds only the delegation weight.
// Each call consumes one delegation.
func (p *Processor) ProcessCommitDelegatedVote(tx *CommitDelegatedVoteTx, delegatee crypto.PublicKey) (*VoterRecord, error) {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return nil, err
	}

	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return nil, err
	}

	now := p.clock.Unix()
	delegation, err := p.validator.ValidateCommitDelegatedVote(tx, dao, proposal, delegatee, now)
	if err != nil {
		return nil, err
	}

	recordAddr := VoterRecordAddress(proposal.Address, delegatee)
	record, exists := p.state.VoterRecords[recordAddr]

	if exists {
		capital, err := checkedAdd(record.WeightCapital, delegation.DelegatedCapital)
		if err != nil {
			return nil, err
		}
		community, err := checkedAdd(record.WeightCommunity, delegation.DelegatedCommunity)
		if err != nil {
			return nil, err
		}

		record.WeightCapital = capital
		record.WeightCommunity = community
		record.Commitment = tx.Commitment
		record.RevealAuthority = tx.RevealAuthority
	} else {
		balance := p.tokens.Balance(dao.GovernanceTokenMint, delegatee.String())
		ownCapital, ownCommunity := ModeWeights(balance, dao.VotingMode)

		capital, err := checkedAdd(ownCapital, delegation.DelegatedCapital)
		if err != nil {
			return nil, err
		}
		community, err := checkedAdd(ownCommunity, delegation.DelegatedCommunity)
		if err != nil {
			return nil, err
		}

		commits, err := checkedAdd(proposal.CommitCount, 1)
		if err != nil {
			return nil, err
		}

		record = &VoterRecord{
			Address:         recordAddr,
			Proposal:        proposal.Address,
			Voter:           delegatee,
			Commitment:      tx.Commitment,
			WeightCapital:   capital,
			WeightCommunity: community,
			RevealAuthority: tx.RevealAuthority,
		}
		p.state.VoterRecords[recordAddr] = record
		proposal.CommitCount = commits

		p.emitter.Emit(Event{Type: EventTypeVoteCommitted, Data: VoteCommittedEvent{
			Proposal: proposal.Address,
			Voter:    delegatee,
		}})
	}

	delegation.IsUsed = true

	p.logger.Log("msg", "folded delegation", "proposal", proposal.Address, "delegatee", delegatee, "delegator", tx.Delegator)

	return record, nil
}

// ProcessRevealVote verifies the preimage against the stored commitment,
// folds the snapshot into the tallies and pays the rent-safe rebate to the
// revealer.
func (p *Processor) ProcessRevealVote(tx *RevealVoteTx, revealer crypto.PublicKey) error {
	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return err
	}

	now := p.clock.Unix()
	record, err := p.validator.ValidateRevealVote(tx, proposal, revealer, now)
	if err != nil {
		return err
	}

	reveals, err := checkedAdd(proposal.RevealCount, 1)
	if err != nil {
		return err
	}

	var yesCapital, noCapital, yesCommunity, noCommunity uint64
	if tx.Vote == VoteYes {
		yesCapital, err = checkedAdd(proposal.YesCapital, record.WeightCapital)
		if err != nil {
			return err
		}
		yesCommunity, err = checkedAdd(proposal.YesCommunity, record.WeightCommunity)
		if err != nil {
			return err
		}
		noCapital, noCommunity = proposal.NoCapital, proposal.NoCommunity
	} else {
		noCapital, err = checkedAdd(proposal.NoCapital, record.WeightCapital)
		if err != nil {
			return err
		}
		noCommunity, err = checkedAdd(proposal.NoCommunity, record.WeightCommunity)
		if err != nil {
			return err
		}
		yesCapital, yesCommunity = proposal.YesCapital, proposal.YesCommunity
	}

	// Rebate is best-effort: skipped silently when paying it would drop
	// the proposal account under its rent floor.
	floor := core.RentExemptMinimum(len(EncodeProposal(proposal)))
	paid, err := p.native.TransferIfAboveFloor(proposal.Address, revealer.Identity(), RevealRebateLamports, floor)
	if err != nil {
		return ErrArithmeticOverflow
	}

	proposal.YesCapital = yesCapital
	proposal.NoCapital = noCapital
	proposal.YesCommunity = yesCommunity
	proposal.NoCommunity = noCommunity
	proposal.RevealCount = reveals
	record.Revealed = true

	p.logger.Log("msg", "revealed ballot", "proposal", proposal.Address, "voter", record.Voter, "rebate_paid", paid)
	p.emitter.Emit(Event{Type: EventTypeVoteRevealed, Data: VoteRevealedEvent{
		Proposal: proposal.Address,
		Voter:    record.Voter,
		Vote:     tx.Vote,
	}})

	return nil
}

// ProcessFinalizeProposal tallies a proposal once its reveal window has
// closed. Permissionless; racing callers resolve through the status gate.
//
// Quorum is measured against committers, not holders: non-revealers count
// as abstentions through the reveal ratio. Quorum failure finalizes the
// proposal as Failed with reason QuorumNotReached.
func (p *Processor) ProcessFinalizeProposal(tx *FinalizeProposalTx) (*ProposalAccount, error) {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return nil, err
	}

	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return nil, err
	}

	now := p.clock.Unix()
	if err := requireFinalizeEligible(proposal, now); err != nil {
		return nil, err
	}

	quorumMet, err := p.quorumReached(proposal, dao)
	if err != nil {
		return nil, err
	}

	if !quorumMet {
		proposal.Status = StatusFailed
		p.logger.Log("msg", "finalized proposal", "proposal", proposal.Address, "status", proposal.Status,
			"reason", ErrQuorumNotReached.Message)
		p.emitter.Emit(Event{Type: EventTypeProposalFinalized, Data: ProposalFinalizedEvent{
			Proposal: proposal.Address,
			Status:   StatusFailed,
		}})
		return proposal, nil
	}

	passed, err := p.passRule(proposal, dao)
	if err != nil {
		return nil, err
	}

	if passed {
		proposal.Status = StatusPassed
		proposal.ExecutionUnlocksAt = now + dao.ExecutionDelaySecs
	} else {
		proposal.Status = StatusFailed
	}

	p.logger.Log("msg", "finalized proposal", "proposal", proposal.Address, "status", proposal.Status,
		"unlocks_at", proposal.ExecutionUnlocksAt)
	p.emitter.Emit(Event{Type: EventTypeProposalFinalized, Data: ProposalFinalizedEvent{
		Proposal:           proposal.Address,
		Status:             proposal.Status,
		ExecutionUnlocksAt: proposal.ExecutionUnlocksAt,
	}})

	return proposal, nil
}

// quorumReached checks reveal_count * 100 >= commit_count * quorum%.
func (p *Processor) quorumReached(proposal *ProposalAccount, dao *DAOAccount) (bool, error) {
	lhs, err := checkedMul(proposal.RevealCount, 100)
	if err != nil {
		return false, err
	}
	rhs, err := checkedMul(proposal.CommitCount, uint64(dao.QuorumPercentage))
	if err != nil {
		return false, err
	}
	return lhs >= rhs, nil
}

// passRule applies the mode-specific outcome. Ties fail in the scalar
// modes; DualChamber requires both chambers to meet their percentage
// thresholds, and an empty chamber fails that chamber.
func (p *Processor) passRule(proposal *ProposalAccount, dao *DAOAccount) (bool, error) {
	switch dao.VotingMode.Kind {
	case ModeTokenWeighted:
		return proposal.YesCapital > proposal.NoCapital, nil
	case ModeQuadratic:
		return proposal.YesCommunity > proposal.NoCommunity, nil
	case ModeDualChamber:
		capital, err := chamberMeetsThreshold(proposal.YesCapital, proposal.NoCapital, dao.VotingMode.CapitalThreshold)
		if err != nil {
			return false, err
		}
		community, err := chamberMeetsThreshold(proposal.YesCommunity, proposal.NoCommunity, dao.VotingMode.CommunityThreshold)
		if err != nil {
			return false, err
		}
		return capital && community, nil
	default:
		return false, ErrInvalidConfig
	}
}

func chamberMeetsThreshold(yes, no uint64, thresholdPct uint8) (bool, error) {
	total, err := checkedAdd(yes, no)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}

	lhs, err := checkedMul(yes, 100)
	if err != nil {
		return false, err
	}
	rhs, err := checkedMul(total, uint64(thresholdPct))
	if err != nil {
		return false, err
	}

	return lhs >= rhs, nil
}

// ProcessCancelProposal collapses a still-voting proposal. Authority only.
func (p *Processor) ProcessCancelProposal(tx *CancelProposalTx, authority crypto.PublicKey) error {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return err
	}

	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return err
	}

	now := p.clock.Unix()
	if err := p.validator.ValidateCancelProposal(dao, proposal, authority, now); err != nil {
		return err
	}

	proposal.Status = StatusCancelled

	p.logger.Log("msg", "cancelled proposal", "proposal", proposal.Address)
	p.emitter.Emit(Event{Type: EventTypeProposalCancelled, Data: ProposalCancelledEvent{Proposal: proposal.Address}})

	return nil
}

// ProcessVetoProposal collapses a passed proposal during its timelock.
// Authority only.
func (p *Processor) ProcessVetoProposal(tx *VetoProposalTx, authority crypto.PublicKey) error {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return err
	}

	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return err
	}

	now := p.clock.Unix()
	if err := p.validator.ValidateVetoProposal(dao, proposal, authority, now); err != nil {
		return err
	}

	proposal.Status = StatusVetoed

	p.logger.Log("msg", "vetoed proposal", "proposal", proposal.Address)
	p.emitter.Emit(Event{Type: EventTypeProposalVetoed, Data: ProposalVetoedEvent{Proposal: proposal.Address}})

	return nil
}

// ProcessDepositTreasury credits the DAO treasury. Permissionless.
func (p *Processor) ProcessDepositTreasury(tx *DepositTreasuryTx) error {
	treasury, err := p.state.GetTreasury(tx.DAO)
	if err != nil {
		return err
	}

	if tx.AmountLamports == 0 {
		return NewGovError(ErrCodeInvalidConfig, "deposit amount must be greater than zero", nil)
	}

	if err := p.native.Fund(treasury.Address, tx.AmountLamports); err != nil {
		return ErrArithmeticOverflow
	}

	p.logger.Log("msg", "deposited to treasury", "treasury", treasury.Address, "lamports", tx.AmountLamports)

	return nil
}
