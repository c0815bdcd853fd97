package gov

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/BOCK-CHAIN/BallotChain/types"
)

// Account data starts with an 8-byte type discriminant derived from the
// account name, followed by little-endian fields with length-prefixed
// strings and presence-byte options.

func accountDiscriminant(name string) [8]byte {
	digest := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], digest[:8])
	return d
}

var (
	daoDiscriminant         = accountDiscriminant("DAOAccount")
	proposalDiscriminant    = accountDiscriminant("ProposalAccount")
	voterRecordDiscriminant = accountDiscriminant("VoterRecord")
	delegationDiscriminant  = accountDiscriminant("DelegationRecord")
	treasuryDiscriminant    = accountDiscriminant("TreasuryAccount")
	weightDiscriminant      = accountDiscriminant("VoterWeightRecord")
)

type accountWriter struct {
	buf bytes.Buffer
}

func (w *accountWriter) discriminant(d [8]byte) { w.buf.Write(d[:]) }
func (w *accountWriter) u8(v uint8)             { w.buf.WriteByte(v) }

func (w *accountWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *accountWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *accountWriter) boolean(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *accountWriter) str(s string) {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(s)))
	w.buf.Write(l[:])
	w.buf.WriteString(s)
}

func (w *accountWriter) hash(h types.Hash) { w.buf.Write(h.ToSlice()) }

func (w *accountWriter) pubkey(k crypto.PublicKey) {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(k)))
	w.buf.Write(l[:])
	w.buf.Write(k)
}

func (w *accountWriter) option(present bool) { w.boolean(present) }

type accountReader struct {
	r *bytes.Reader
}

func (r *accountReader) discriminant(want [8]byte) error {
	var got [8]byte
	if _, err := io.ReadFull(r.r, got[:]); err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("account discriminant mismatch")
	}
	return nil
}

func (r *accountReader) u8() (uint8, error) {
	return r.r.ReadByte()
}

func (r *accountReader) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *accountReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *accountReader) boolean() (bool, error) {
	b, err := r.r.ReadByte()
	return b != 0, err
}

func (r *accountReader) str() (string, error) {
	var l [4]byte
	if _, err := io.ReadFull(r.r, l[:]); err != nil {
		return "", err
	}
	b := make([]byte, binary.LittleEndian.Uint32(l[:]))
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *accountReader) hash() (types.Hash, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return types.Hash{}, err
	}
	return types.HashFromBytes(b), nil
}

func (r *accountReader) pubkey() (crypto.PublicKey, error) {
	var l [4]byte
	if _, err := io.ReadFull(r.r, l[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(l[:])
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, err
	}
	return crypto.PublicKey(b), nil
}

func (r *accountReader) option() (bool, error) {
	return r.boolean()
}

// EncodeDAO serializes a DAO account.
func EncodeDAO(dao *DAOAccount) []byte {
	w := &accountWriter{}
	w.discriminant(daoDiscriminant)
	w.hash(dao.Address)
	w.pubkey(dao.Authority)
	w.str(dao.Name)
	w.str(dao.GovernanceTokenMint)
	w.u8(dao.QuorumPercentage)
	w.u64(dao.MinTokensToVote)
	w.i64(dao.RevealWindowSecs)
	w.i64(dao.ExecutionDelaySecs)
	w.u8(byte(dao.VotingMode.Kind))
	w.u8(dao.VotingMode.CapitalThreshold)
	w.u8(dao.VotingMode.CommunityThreshold)
	w.u64(dao.ProposalCount)
	w.option(!dao.MigratedFrom.IsZero())
	if !dao.MigratedFrom.IsZero() {
		w.hash(dao.MigratedFrom)
	}
	return w.buf.Bytes()
}

// DecodeDAO deserializes a DAO account.
func DecodeDAO(data []byte) (*DAOAccount, error) {
	r := &accountReader{r: bytes.NewReader(data)}
	if err := r.discriminant(daoDiscriminant); err != nil {
		return nil, err
	}

	dao := &DAOAccount{}
	var err error
	if dao.Address, err = r.hash(); err != nil {
		return nil, err
	}
	if dao.Authority, err = r.pubkey(); err != nil {
		return nil, err
	}
	if dao.Name, err = r.str(); err != nil {
		return nil, err
	}
	if dao.GovernanceTokenMint, err = r.str(); err != nil {
		return nil, err
	}
	if dao.QuorumPercentage, err = r.u8(); err != nil {
		return nil, err
	}
	if dao.MinTokensToVote, err = r.u64(); err != nil {
		return nil, err
	}
	if dao.RevealWindowSecs, err = r.i64(); err != nil {
		return nil, err
	}
	if dao.ExecutionDelaySecs, err = r.i64(); err != nil {
		return nil, err
	}
	kind, err := r.u8()
	if err != nil {
		return nil, err
	}
	dao.VotingMode.Kind = VotingModeKind(kind)
	if dao.VotingMode.CapitalThreshold, err = r.u8(); err != nil {
		return nil, err
	}
	if dao.VotingMode.CommunityThreshold, err = r.u8(); err != nil {
		return nil, err
	}
	if dao.ProposalCount, err = r.u64(); err != nil {
		return nil, err
	}
	migrated, err := r.option()
	if err != nil {
		return nil, err
	}
	if migrated {
		if dao.MigratedFrom, err = r.hash(); err != nil {
			return nil, err
		}
	}

	return dao, nil
}

// EncodeProposal serializes a proposal account.
func EncodeProposal(p *ProposalAccount) []byte {
	w := &accountWriter{}
	w.discriminant(proposalDiscriminant)
	w.hash(p.Address)
	w.hash(p.DAO)
	w.pubkey(p.Proposer)
	w.u64(p.ProposalID)
	w.str(p.Title)
	w.str(p.Description)
	w.u8(byte(p.Status))
	w.i64(p.CreatedAt)
	w.i64(p.VotingEnd)
	w.i64(p.RevealEnd)
	w.u64(p.YesCapital)
	w.u64(p.NoCapital)
	w.u64(p.YesCommunity)
	w.u64(p.NoCommunity)
	w.u64(p.CommitCount)
	w.u64(p.RevealCount)
	w.option(p.TreasuryAction != nil)
	if p.TreasuryAction != nil {
		w.u8(byte(p.TreasuryAction.Kind))
		w.u64(p.TreasuryAction.AmountLamports)
		w.pubkey(p.TreasuryAction.Recipient)
		w.str(p.TreasuryAction.TokenMint)
	}
	w.i64(p.ExecutionUnlocksAt)
	w.boolean(p.IsExecuted)
	w.hash(p.MetadataHash)
	return w.buf.Bytes()
}

// DecodeProposal deserializes a proposal account.
func DecodeProposal(data []byte) (*ProposalAccount, error) {
	r := &accountReader{r: bytes.NewReader(data)}
	if err := r.discriminant(proposalDiscriminant); err != nil {
		return nil, err
	}

	p := &ProposalAccount{}
	var err error
	if p.Address, err = r.hash(); err != nil {
		return nil, err
	}
	if p.DAO, err = r.hash(); err != nil {
		return nil, err
	}
	if p.Proposer, err = r.pubkey(); err != nil {
		return nil, err
	}
	if p.ProposalID, err = r.u64(); err != nil {
		return nil, err
	}
	if p.Title, err = r.str(); err != nil {
		return nil, err
	}
	if p.Description, err = r.str(); err != nil {
		return nil, err
	}
	status, err := r.u8()
	if err != nil {
		return nil, err
	}
	p.Status = ProposalStatus(status)
	if p.CreatedAt, err = r.i64(); err != nil {
		return nil, err
	}
	if p.VotingEnd, err = r.i64(); err != nil {
		return nil, err
	}
	if p.RevealEnd, err = r.i64(); err != nil {
		return nil, err
	}
	if p.YesCapital, err = r.u64(); err != nil {
		return nil, err
	}
	if p.NoCapital, err = r.u64(); err != nil {
		return nil, err
	}
	if p.YesCommunity, err = r.u64(); err != nil {
		return nil, err
	}
	if p.NoCommunity, err = r.u64(); err != nil {
		return nil, err
	}
	if p.CommitCount, err = r.u64(); err != nil {
		return nil, err
	}
	if p.RevealCount, err = r.u64(); err != nil {
		return nil, err
	}
	hasAction, err := r.option()
	if err != nil {
		return nil, err
	}
	if hasAction {
		action := &TreasuryAction{}
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		action.Kind = TreasuryActionKind(kind)
		if action.AmountLamports, err = r.u64(); err != nil {
			return nil, err
		}
		if action.Recipient, err = r.pubkey(); err != nil {
			return nil, err
		}
		if action.TokenMint, err = r.str(); err != nil {
			return nil, err
		}
		p.TreasuryAction = action
	}
	if p.ExecutionUnlocksAt, err = r.i64(); err != nil {
		return nil, err
	}
	if p.IsExecuted, err = r.boolean(); err != nil {
		return nil, err
	}
	if p.MetadataHash, err = r.hash(); err != nil {
		return nil, err
	}

	return p, nil
}

// EncodeVoterRecord serializes a voter record.
func EncodeVoterRecord(v *VoterRecord) []byte {
	w := &accountWriter{}
	w.discriminant(voterRecordDiscriminant)
	w.hash(v.Address)
	w.hash(v.Proposal)
	w.pubkey(v.Voter)
	w.hash(v.Commitment)
	w.u64(v.WeightCapital)
	w.u64(v.WeightCommunity)
	w.option(len(v.RevealAuthority) != 0)
	if len(v.RevealAuthority) != 0 {
		w.pubkey(v.RevealAuthority)
	}
	w.boolean(v.Revealed)
	return w.buf.Bytes()
}

// DecodeVoterRecord deserializes a voter record.
func DecodeVoterRecord(data []byte) (*VoterRecord, error) {
	r := &accountReader{r: bytes.NewReader(data)}
	if err := r.discriminant(voterRecordDiscriminant); err != nil {
		return nil, err
	}

	v := &VoterRecord{}
	var err error
	if v.Address, err = r.hash(); err != nil {
		return nil, err
	}
	if v.Proposal, err = r.hash(); err != nil {
		return nil, err
	}
	if v.Voter, err = r.pubkey(); err != nil {
		return nil, err
	}
	if v.Commitment, err = r.hash(); err != nil {
		return nil, err
	}
	if v.WeightCapital, err = r.u64(); err != nil {
		return nil, err
	}
	if v.WeightCommunity, err = r.u64(); err != nil {
		return nil, err
	}
	hasAuthority, err := r.option()
	if err != nil {
		return nil, err
	}
	if hasAuthority {
		if v.RevealAuthority, err = r.pubkey(); err != nil {
			return nil, err
		}
	}
	if v.Revealed, err = r.boolean(); err != nil {
		return nil, err
	}

	return v, nil
}

// EncodeDelegation serializes a delegation record.
func EncodeDelegation(d *DelegationRecord) []byte {
	w := &accountWriter{}
	w.discriminant(delegationDiscriminant)
	w.hash(d.Address)
	w.hash(d.Proposal)
	w.pubkey(d.Delegator)
	w.pubkey(d.Delegatee)
	w.u64(d.DelegatedCapital)
	w.u64(d.DelegatedCommunity)
	w.boolean(d.IsUsed)
	return w.buf.Bytes()
}

// DecodeDelegation deserializes a delegation record.
func DecodeDelegation(data []byte) (*DelegationRecord, error) {
	r := &accountReader{r: bytes.NewReader(data)}
	if err := r.discriminant(delegationDiscriminant); err != nil {
		return nil, err
	}

	d := &DelegationRecord{}
	var err error
	if d.Address, err = r.hash(); err != nil {
		return nil, err
	}
	if d.Proposal, err = r.hash(); err != nil {
		return nil, err
	}
	if d.Delegator, err = r.pubkey(); err != nil {
		return nil, err
	}
	if d.Delegatee, err = r.pubkey(); err != nil {
		return nil, err
	}
	if d.DelegatedCapital, err = r.u64(); err != nil {
		return nil, err
	}
	if d.DelegatedCommunity, err = r.u64(); err != nil {
		return nil, err
	}
	if d.IsUsed, err = r.boolean(); err != nil {
		return nil, err
	}

	return d, nil
}

// EncodeTreasury serializes a treasury account.
func EncodeTreasury(t *TreasuryAccount) []byte {
	w := &accountWriter{}
	w.discriminant(treasuryDiscriminant)
	w.hash(t.Address)
	w.hash(t.DAO)
	return w.buf.Bytes()
}

// DecodeTreasury deserializes a treasury account.
func DecodeTreasury(data []byte) (*TreasuryAccount, error) {
	r := &accountReader{r: bytes.NewReader(data)}
	if err := r.discriminant(treasuryDiscriminant); err != nil {
		return nil, err
	}

	t := &TreasuryAccount{}
	var err error
	if t.Address, err = r.hash(); err != nil {
		return nil, err
	}
	if t.DAO, err = r.hash(); err != nil {
		return nil, err
	}

	return t, nil
}

// EncodeVoterWeightRecord serializes the exported weight surface.
func EncodeVoterWeightRecord(v *VoterWeightRecord) []byte {
	w := &accountWriter{}
	w.discriminant(weightDiscriminant)
	w.hash(v.Address)
	w.hash(v.Realm)
	w.str(v.GoverningTokenMint)
	w.pubkey(v.GoverningTokenOwner)
	w.u64(v.VoterWeight)
	w.u64(v.VoterWeightExpiry)
	w.u8(byte(v.WeightAction))
	w.option(!v.WeightActionTarget.IsZero())
	if !v.WeightActionTarget.IsZero() {
		w.hash(v.WeightActionTarget)
	}
	return w.buf.Bytes()
}

// DecodeVoterWeightRecord deserializes the exported weight surface.
func DecodeVoterWeightRecord(data []byte) (*VoterWeightRecord, error) {
	r := &accountReader{r: bytes.NewReader(data)}
	if err := r.discriminant(weightDiscriminant); err != nil {
		return nil, err
	}

	v := &VoterWeightRecord{}
	var err error
	if v.Address, err = r.hash(); err != nil {
		return nil, err
	}
	if v.Realm, err = r.hash(); err != nil {
		return nil, err
	}
	if v.GoverningTokenMint, err = r.str(); err != nil {
		return nil, err
	}
	if v.GoverningTokenOwner, err = r.pubkey(); err != nil {
		return nil, err
	}
	if v.VoterWeight, err = r.u64(); err != nil {
		return nil, err
	}
	if v.VoterWeightExpiry, err = r.u64(); err != nil {
		return nil, err
	}
	action, err := r.u8()
	if err != nil {
		return nil, err
	}
	v.WeightAction = WeightAction(action)
	hasTarget, err := r.option()
	if err != nil {
		return nil, err
	}
	if hasTarget {
		if v.WeightActionTarget, err = r.hash(); err != nil {
			return nil, err
		}
	}

	return v, nil
}
