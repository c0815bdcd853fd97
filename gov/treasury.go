package gov

import (
	"bytes"

	"github.com/BOCK-CHAIN/BallotChain/crypto"
)

// ProcessExecuteProposal routes the attached treasury action once the
// timelock has elapsed. Permissionless; racing callers resolve through
// the IsExecuted flag, which flips before any asset moves so repeat
// invocations fail with AlreadyExecuted.
func (p *Processor) ProcessExecuteProposal(tx *ExecuteProposalTx, caller crypto.PublicKey) error {
	proposal, err := p.state.GetProposal(tx.DAO, tx.ProposalID)
	if err != nil {
		return err
	}

	treasury, err := p.state.GetTreasury(tx.DAO)
	if err != nil {
		return err
	}

	now := p.clock.Unix()
	if err := requireExecutable(proposal, now); err != nil {
		return err
	}

	action := proposal.TreasuryAction
	if action == nil {
		return ErrInvalidTreasuryAction
	}

	if err := p.checkActionAccounts(tx, action, treasury); err != nil {
		return err
	}

	// Funds are checked before the idempotence flag flips so a failed
	// execute leaves the proposal executable once the treasury is topped
	// up.
	switch action.Kind {
	case ActionSendSol:
		if p.native.Balance(treasury.Address) < action.AmountLamports {
			return ErrInsufficientBalance
		}
	case ActionSendToken:
		if p.tokens.Balance(action.TokenMint, treasury.Authority()) < action.AmountLamports {
			return ErrInsufficientBalance
		}
	}

	proposal.IsExecuted = true

	switch action.Kind {
	case ActionSendSol:
		if err := p.native.Transfer(treasury.Address, action.Recipient.Identity(), action.AmountLamports); err != nil {
			proposal.IsExecuted = false
			return ErrArithmeticOverflow
		}
	case ActionSendToken:
		if err := p.tokens.Transfer(action.TokenMint, treasury.Authority(), action.Recipient.String(), action.AmountLamports); err != nil {
			proposal.IsExecuted = false
			return ErrArithmeticOverflow
		}
	case ActionCustomCPI:
		// No inline asset movement: a relayer observes the event and
		// enacts the request off-chain.
		p.emitter.Emit(Event{Type: EventTypeCustomCPIRequested, Data: CustomCPIRequestedEvent{
			Proposal:       proposal.Address,
			Recipient:      action.Recipient,
			AmountLamports: action.AmountLamports,
		}})
	}

	p.logger.Log("msg", "executed proposal", "proposal", proposal.Address, "kind", action.Kind,
		"amount", action.AmountLamports, "caller", caller)
	p.emitter.Emit(Event{Type: EventTypeProposalExecuted, Data: ProposalExecutedEvent{Proposal: proposal.Address}})

	return nil
}

// checkActionAccounts verifies the caller-supplied accounts against the
// recorded action: recipient identity, destination mint, and treasury
// custody of the source.
func (p *Processor) checkActionAccounts(tx *ExecuteProposalTx, action *TreasuryAction, treasury *TreasuryAccount) error {
	if !bytes.Equal(tx.Recipient, action.Recipient) {
		return ErrTreasuryRecipientMismatch
	}

	if action.Kind == ActionSendToken {
		if tx.TokenMint != action.TokenMint {
			return ErrTokenMintMismatch
		}
		if tx.SourceOwner != treasury.Authority() {
			return ErrTreasuryAuthorityMismatch
		}
	}

	return nil
}
