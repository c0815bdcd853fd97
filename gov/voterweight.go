package gov

import (
	"github.com/BOCK-CHAIN/BallotChain/crypto"
)

// MaxVoterWeightExpirySlots bounds how long an exported weight stays
// consumable, so stale snapshots cannot be replayed into host governance
// stacks.
const MaxVoterWeightExpirySlots = 100

// ProcessUpdateVoterWeightRecord stamps the caller's plugin-consumable
// weight from their current balance. The surface is single-valued: modes
// with a community chamber export that chamber, TokenWeighted exports the
// raw balance.
func (p *Processor) ProcessUpdateVoterWeightRecord(tx *UpdateVoterWeightRecordTx, voter crypto.PublicKey) (*VoterWeightRecord, error) {
	dao, err := p.state.GetDAO(tx.DAO)
	if err != nil {
		return nil, err
	}

	switch tx.WeightAction {
	case WeightActionNone, WeightActionCastVote, WeightActionCreateProposal:
	default:
		return nil, NewGovError(ErrCodeInvalidConfig, "unknown weight action", nil)
	}

	balance := p.tokens.Balance(dao.GovernanceTokenMint, voter.String())
	capital, community := ModeWeights(balance, dao.VotingMode)

	weight := capital
	if dao.VotingMode.Kind == ModeQuadratic || dao.VotingMode.Kind == ModeDualChamber {
		weight = community
	}

	record := &VoterWeightRecord{
		Address:             VoterWeightRecordAddress(dao.Address, voter),
		Realm:               dao.Address,
		GoverningTokenMint:  dao.GovernanceTokenMint,
		GoverningTokenOwner: voter,
		VoterWeight:         weight,
		VoterWeightExpiry:   p.clock.Slot() + MaxVoterWeightExpirySlots,
		WeightAction:        tx.WeightAction,
		WeightActionTarget:  tx.ActionTarget,
	}
	p.state.WeightRecords[record.Address] = record

	p.logger.Log("msg", "updated voter weight record", "dao", dao.Address, "owner", voter, "weight", weight)

	return record, nil
}
