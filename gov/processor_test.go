package gov

import (
	"errors"
	"testing"

	"github.com/BOCK-CHAIN/BallotChain/core"
	"github.com/BOCK-CHAIN/BallotChain/crypto"
	"github.com/go-kit/log"
)

const testEpoch = int64(1_700_000_000)

type testEnv struct {
	t         *testing.T
	state     *GovernanceState
	native    *core.Ledger
	tokens    *core.TokenState
	clock     *core.ManualClock
	processor *Processor
	authority crypto.PrivateKey
	mint      string
	dao       *DAOAccount
}

func newTestEnv(t *testing.T, mode VotingMode, quorum uint8, minTokens uint64, revealWindow, execDelay int64) *testEnv {
	t.Helper()

	logger := log.NewNopLogger()
	state := NewGovernanceState()
	native := core.NewLedger(logger)
	tokens := core.NewTokenState()
	clock := core.NewManualClock(testEpoch)

	mint := crypto.GeneratePrivateKey().PublicKey().String()
	if _, err := tokens.CreateMint(mint, "GOVX", 6); err != nil {
		t.Fatalf("failed to create mint: %v", err)
	}

	processor := NewProcessor(state, native, tokens, clock, logger)
	authority := crypto.GeneratePrivateKey()

	dao, err := processor.ProcessInitializeDAO(&InitializeDAOTx{
		Name:                "ballotchain",
		GovernanceTokenMint: mint,
		QuorumPercentage:    quorum,
		MinTokensToVote:     minTokens,
		RevealWindowSecs:    revealWindow,
		ExecutionDelaySecs:  execDelay,
		VotingMode:          mode,
	}, authority.PublicKey())
	if err != nil {
		t.Fatalf("failed to initialize DAO: %v", err)
	}

	return &testEnv{
		t:         t,
		state:     state,
		native:    native,
		tokens:    tokens,
		clock:     clock,
		processor: processor,
		authority: authority,
		mint:      mint,
		dao:       dao,
	}
}

func (e *testEnv) mintTo(owner crypto.PublicKey, amount uint64) {
	e.t.Helper()
	if err := e.tokens.MintTo(e.mint, owner.String(), amount); err != nil {
		e.t.Fatalf("failed to mint: %v", err)
	}
}

func (e *testEnv) createProposal(duration int64, action *TreasuryAction) *ProposalAccount {
	e.t.Helper()
	proposal, err := e.processor.ProcessCreateProposal(&CreateProposalTx{
		DAO:            e.dao.Address,
		Title:          "test proposal",
		Description:    "a proposal under test",
		DurationSecs:   duration,
		TreasuryAction: action,
	}, e.authority.PublicKey())
	if err != nil {
		e.t.Fatalf("failed to create proposal: %v", err)
	}
	return proposal
}

func (e *testEnv) commit(voter crypto.PrivateKey, vote Vote, proposal *ProposalAccount) [SaltLen]byte {
	e.t.Helper()
	salt := randomSalt()
	pub := voter.PublicKey()
	_, err := e.processor.ProcessCommitVote(&CommitVoteTx{
		DAO:        e.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(vote, salt, pub.Identity()),
	}, pub)
	if err != nil {
		e.t.Fatalf("failed to commit: %v", err)
	}
	return salt
}

func (e *testEnv) reveal(voter crypto.PrivateKey, vote Vote, salt [SaltLen]byte, proposal *ProposalAccount) error {
	pub := voter.PublicKey()
	return e.processor.ProcessRevealVote(&RevealVoteTx{
		DAO:        e.dao.Address,
		ProposalID: proposal.ProposalID,
		Voter:      pub,
		Vote:       vote,
		Salt:       salt,
	}, pub)
}

func tokenWeighted() VotingMode {
	return VotingMode{Kind: ModeTokenWeighted}
}

func TestInitializeDAOValidation(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)

	cases := []struct {
		name string
		tx   InitializeDAOTx
	}{
		{"zero quorum", InitializeDAOTx{Name: "a", GovernanceTokenMint: env.mint, QuorumPercentage: 0, RevealWindowSecs: 1}},
		{"quorum above 100", InitializeDAOTx{Name: "a", GovernanceTokenMint: env.mint, QuorumPercentage: 101, RevealWindowSecs: 1}},
		{"zero reveal window", InitializeDAOTx{Name: "a", GovernanceTokenMint: env.mint, QuorumPercentage: 51, RevealWindowSecs: 0}},
		{"negative delay", InitializeDAOTx{Name: "a", GovernanceTokenMint: env.mint, QuorumPercentage: 51, RevealWindowSecs: 1, ExecutionDelaySecs: -1}},
		{"name too long", InitializeDAOTx{Name: "0123456789012345678901234567890123", GovernanceTokenMint: env.mint, QuorumPercentage: 51, RevealWindowSecs: 1}},
		{"missing mint", InitializeDAOTx{Name: "a", QuorumPercentage: 51, RevealWindowSecs: 1}},
		{"bad dual thresholds", InitializeDAOTx{Name: "a", GovernanceTokenMint: env.mint, QuorumPercentage: 51, RevealWindowSecs: 1,
			VotingMode: VotingMode{Kind: ModeDualChamber, CapitalThreshold: 0, CommunityThreshold: 50}}},
	}

	for _, tc := range cases {
		tx := tc.tx
		if tx.VotingMode.Kind == 0 {
			tx.VotingMode = tokenWeighted()
		}
		if _, err := env.processor.ProcessInitializeDAO(&tx, env.authority.PublicKey()); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestInitializeDAOIdempotenceRejected(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)

	_, err := env.processor.ProcessInitializeDAO(&InitializeDAOTx{
		Name:                "ballotchain",
		GovernanceTokenMint: env.mint,
		QuorumPercentage:    51,
		RevealWindowSecs:    8,
		VotingMode:          tokenWeighted(),
	}, env.authority.PublicKey())
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected AlreadyInitialized, got %v", err)
	}
}

func TestMigrateRecordsProvenance(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)

	source := deriveAddress([]byte("realms"), []byte("source-governance"))
	dao, err := env.processor.ProcessMigrateFromRealms(&MigrateFromRealmsTx{
		InitializeDAOTx: InitializeDAOTx{
			Name:                "migrated",
			GovernanceTokenMint: env.mint,
			QuorumPercentage:    51,
			RevealWindowSecs:    8,
			VotingMode:          tokenWeighted(),
		},
		SourceGovernance: source,
	}, env.authority.PublicKey())
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	if dao.MigratedFrom != source {
		t.Fatalf("expected provenance %s, got %s", source, dao.MigratedFrom)
	}
}

func TestCreateProposalAssignsSequentialIDs(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)

	first := env.createProposal(100, nil)
	second := env.createProposal(100, nil)

	if first.ProposalID != 0 || second.ProposalID != 1 {
		t.Fatalf("expected ids 0 and 1, got %d and %d", first.ProposalID, second.ProposalID)
	}
	if env.dao.ProposalCount != 2 {
		t.Fatalf("expected proposal count 2, got %d", env.dao.ProposalCount)
	}
}

func TestCreateProposalRequiresAuthority(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)

	outsider := crypto.GeneratePrivateKey()
	_, err := env.processor.ProcessCreateProposal(&CreateProposalTx{
		DAO:          env.dao.Address,
		Title:        "rogue",
		DurationSecs: 100,
	}, outsider.PublicKey())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestCreateProposalTreasuryActionInvariants(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	recipient := crypto.GeneratePrivateKey().PublicKey()

	cases := []struct {
		name   string
		action TreasuryAction
		code   ErrorCode
	}{
		{"zero amount", TreasuryAction{Kind: ActionSendSol, AmountLamports: 0, Recipient: recipient}, ErrCodeInvalidTreasuryAction},
		{"token without mint", TreasuryAction{Kind: ActionSendToken, AmountLamports: 1, Recipient: recipient}, ErrCodeTokenMintRequired},
		{"sol with mint", TreasuryAction{Kind: ActionSendSol, AmountLamports: 1, Recipient: recipient, TokenMint: env.mint}, ErrCodeInvalidTreasuryAction},
		{"unknown kind", TreasuryAction{Kind: 0x77, AmountLamports: 1, Recipient: recipient}, ErrCodeInvalidTreasuryAction},
	}

	for _, tc := range cases {
		action := tc.action
		_, err := env.processor.ProcessCreateProposal(&CreateProposalTx{
			DAO:            env.dao.Address,
			Title:          "t",
			DurationSecs:   100,
			TreasuryAction: &action,
		}, env.authority.PublicKey())

		var govErr *GovError
		if !errors.As(err, &govErr) || govErr.Code != tc.code {
			t.Errorf("%s: expected code %d, got %v", tc.name, tc.code, err)
		}
	}
}

func TestCommitSnapshotsWeight(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 1_000)

	salt := env.commit(voter, VoteYes, proposal)

	record := env.state.VoterRecords[VoterRecordAddress(proposal.Address, voter.PublicKey())]
	if record == nil {
		t.Fatal("voter record not created")
	}
	if record.WeightCapital != 1_000 || record.WeightCommunity != 1_000 {
		t.Fatalf("unexpected snapshot (%d, %d)", record.WeightCapital, record.WeightCommunity)
	}
	if proposal.CommitCount != 1 {
		t.Fatalf("expected commit count 1, got %d", proposal.CommitCount)
	}

	// Later token movement must not touch the snapshot or the tally.
	if err := env.tokens.Transfer(env.mint, voter.PublicKey().String(), crypto.GeneratePrivateKey().PublicKey().String(), 900); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	env.clock.Set(proposal.VotingEnd)
	if err := env.reveal(voter, VoteYes, salt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if proposal.YesCapital != 1_000 {
		t.Fatalf("expected yes capital 1000 from snapshot, got %d", proposal.YesCapital)
	}
}

func TestCommitDuplicateRejected(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	env.commit(voter, VoteYes, proposal)

	_, err := env.processor.ProcessCommitVote(&CommitVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(VoteNo, randomSalt(), voter.PublicKey().Identity()),
	}, voter.PublicKey())
	if !errors.Is(err, ErrAlreadyCommitted) {
		t.Fatalf("expected AlreadyCommitted, got %v", err)
	}
}

func TestCommitBelowMinimumRejected(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 500, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 499)

	_, err := env.processor.ProcessCommitVote(&CommitVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(VoteYes, randomSalt(), voter.PublicKey().Identity()),
	}, voter.PublicKey())

	var govErr *GovError
	if !errors.As(err, &govErr) || govErr.Code != ErrCodeInsufficientBalance {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
}

func TestCommitPhaseHiding(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	for i := 0; i < 5; i++ {
		voter := crypto.GeneratePrivateKey()
		env.mintTo(voter.PublicKey(), 100)
		env.commit(voter, VoteYes, proposal)
	}

	// During the commit phase no tally field may move.
	if proposal.YesCapital != 0 || proposal.NoCapital != 0 || proposal.YesCommunity != 0 || proposal.NoCommunity != 0 {
		t.Fatal("tallies must stay zero during the commit phase")
	}
}

func TestDelegationFoldAndSingleUse(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	delegator := crypto.GeneratePrivateKey()
	delegatee := crypto.GeneratePrivateKey()
	env.mintTo(delegator.PublicKey(), 2_000)
	env.mintTo(delegatee.PublicKey(), 1_000)

	if _, err := env.processor.ProcessDelegateVote(&DelegateVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Delegatee:  delegatee.PublicKey(),
	}, delegator.PublicKey()); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}

	salt := randomSalt()
	record, err := env.processor.ProcessCommitDelegatedVote(&CommitDelegatedVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(VoteYes, salt, delegatee.PublicKey().Identity()),
		Delegator:  delegator.PublicKey(),
	}, delegatee.PublicKey())
	if err != nil {
		t.Fatalf("commit delegated failed: %v", err)
	}

	// Fold law: own snapshot plus delegation snapshot.
	if record.WeightCapital != 3_000 {
		t.Fatalf("expected folded capital 3000, got %d", record.WeightCapital)
	}
	if proposal.CommitCount != 1 {
		t.Fatalf("expected one committer, got %d", proposal.CommitCount)
	}

	// Re-folding the same delegation must fail.
	_, err = env.processor.ProcessCommitDelegatedVote(&CommitDelegatedVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(VoteYes, salt, delegatee.PublicKey().Identity()),
		Delegator:  delegator.PublicKey(),
	}, delegatee.PublicKey())
	if !errors.Is(err, ErrDelegationAlreadyUsed) {
		t.Fatalf("expected DelegationAlreadyUsed, got %v", err)
	}
}

func TestDelegatorCannotCommit(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	delegator := crypto.GeneratePrivateKey()
	delegatee := crypto.GeneratePrivateKey()
	env.mintTo(delegator.PublicKey(), 500)
	env.mintTo(delegatee.PublicKey(), 500)

	if _, err := env.processor.ProcessDelegateVote(&DelegateVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Delegatee:  delegatee.PublicKey(),
	}, delegator.PublicKey()); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}

	_, err := env.processor.ProcessCommitVote(&CommitVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(VoteYes, randomSalt(), delegator.PublicKey().Identity()),
	}, delegator.PublicKey())
	if !errors.Is(err, ErrAlreadyDelegated) {
		t.Fatalf("expected AlreadyDelegated, got %v", err)
	}
}

func TestMultipleDelegationsRequireMultipleCalls(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	delegatee := crypto.GeneratePrivateKey()
	env.mintTo(delegatee.PublicKey(), 100)

	delegators := make([]crypto.PrivateKey, 3)
	for i := range delegators {
		delegators[i] = crypto.GeneratePrivateKey()
		env.mintTo(delegators[i].PublicKey(), 100)
		if _, err := env.processor.ProcessDelegateVote(&DelegateVoteTx{
			DAO:        env.dao.Address,
			ProposalID: proposal.ProposalID,
			Delegatee:  delegatee.PublicKey(),
		}, delegators[i].PublicKey()); err != nil {
			t.Fatalf("delegate %d failed: %v", i, err)
		}
	}

	salt := randomSalt()
	commitment := ComputeCommitment(VoteYes, salt, delegatee.PublicKey().Identity())
	for i := range delegators {
		record, err := env.processor.ProcessCommitDelegatedVote(&CommitDelegatedVoteTx{
			DAO:        env.dao.Address,
			ProposalID: proposal.ProposalID,
			Commitment: commitment,
			Delegator:  delegators[i].PublicKey(),
		}, delegatee.PublicKey())
		if err != nil {
			t.Fatalf("fold %d failed: %v", i, err)
		}
		want := uint64(100 * (i + 2))
		if record.WeightCapital != want {
			t.Fatalf("after fold %d expected capital %d, got %d", i, want, record.WeightCapital)
		}
	}

	// One record, one committer, three consumed delegations.
	if proposal.CommitCount != 1 {
		t.Fatalf("expected commit count 1, got %d", proposal.CommitCount)
	}
}

func TestRevealVerifiesPreimage(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	salt := env.commit(voter, VoteYes, proposal)

	env.clock.Set(proposal.VotingEnd)

	// Wrong vote direction.
	if err := env.reveal(voter, VoteNo, salt, proposal); !errors.Is(err, ErrCommitmentMismatch) {
		t.Fatalf("expected CommitmentMismatch for flipped vote, got %v", err)
	}

	// One-byte salt perturbation.
	perturbed := salt
	perturbed[7] ^= 0x01
	if err := env.reveal(voter, VoteYes, perturbed, proposal); !errors.Is(err, ErrCommitmentMismatch) {
		t.Fatalf("expected CommitmentMismatch for perturbed salt, got %v", err)
	}

	// Correct preimage folds the snapshot once.
	if err := env.reveal(voter, VoteYes, salt, proposal); err != nil {
		t.Fatalf("legal reveal failed: %v", err)
	}
	if proposal.YesCapital != 100 || proposal.RevealCount != 1 {
		t.Fatalf("tally not updated: yes=%d reveals=%d", proposal.YesCapital, proposal.RevealCount)
	}

	// Exactly-once contribution.
	if err := env.reveal(voter, VoteYes, salt, proposal); !errors.Is(err, ErrAlreadyRevealed) {
		t.Fatalf("expected AlreadyRevealed, got %v", err)
	}
	if proposal.YesCapital != 100 {
		t.Fatalf("double reveal changed the tally: %d", proposal.YesCapital)
	}
}

func TestRevealAuthorization(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	stranger := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	salt := env.commit(voter, VoteYes, proposal)

	env.clock.Set(proposal.VotingEnd)

	err := env.processor.ProcessRevealVote(&RevealVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Voter:      voter.PublicKey(),
		Vote:       VoteYes,
		Salt:       salt,
	}, stranger.PublicKey())
	if !errors.Is(err, ErrNotAuthorizedToReveal) {
		t.Fatalf("expected NotAuthorizedToReveal, got %v", err)
	}
}

func TestRevealRebate(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	salt := env.commit(voter, VoteYes, proposal)

	// Top the proposal account up above its rent floor so one rebate fits.
	if err := env.native.Fund(proposal.Address, RevealRebateLamports); err != nil {
		t.Fatalf("fund failed: %v", err)
	}

	env.clock.Set(proposal.VotingEnd)
	if err := env.reveal(voter, VoteYes, salt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}

	if got := env.native.Balance(voter.PublicKey().Identity()); got != RevealRebateLamports {
		t.Fatalf("expected rebate %d, got %d", RevealRebateLamports, got)
	}
}

func TestRevealRebateSkippedAtRentFloor(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	salt := env.commit(voter, VoteYes, proposal)

	// Proposal account sits exactly at its rent floor: rebate must be
	// skipped but the reveal still counts.
	before := env.native.Balance(proposal.Address)

	env.clock.Set(proposal.VotingEnd)
	if err := env.reveal(voter, VoteYes, salt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}

	if got := env.native.Balance(voter.PublicKey().Identity()); got != 0 {
		t.Fatalf("rebate should be skipped, revealer got %d", got)
	}
	if env.native.Balance(proposal.Address) != before {
		t.Fatal("proposal account balance must not move when the rebate is skipped")
	}
	if proposal.RevealCount != 1 {
		t.Fatal("reveal must succeed even when the rebate is skipped")
	}
}

func TestFinalizeQuorumBoundary(t *testing.T) {
	run := func(t *testing.T, reveals int, want ProposalStatus) {
		env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
		proposal := env.createProposal(100, nil)

		voters := make([]crypto.PrivateKey, 100)
		salts := make([][SaltLen]byte, 100)
		for i := range voters {
			voters[i] = crypto.GeneratePrivateKey()
			env.mintTo(voters[i].PublicKey(), 10)
			salts[i] = env.commit(voters[i], VoteYes, proposal)
		}

		env.clock.Set(proposal.VotingEnd)
		for i := 0; i < reveals; i++ {
			if err := env.reveal(voters[i], VoteYes, salts[i], proposal); err != nil {
				t.Fatalf("reveal %d failed: %v", i, err)
			}
		}

		env.clock.Set(proposal.RevealEnd)
		finalized, err := env.processor.ProcessFinalizeProposal(&FinalizeProposalTx{
			DAO:        env.dao.Address,
			ProposalID: proposal.ProposalID,
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if finalized.Status != want {
			t.Fatalf("with %d/100 reveals expected %s, got %s", reveals, want, finalized.Status)
		}
	}

	t.Run("50 of 100 misses quorum", func(t *testing.T) { run(t, 50, StatusFailed) })
	t.Run("51 of 100 meets quorum", func(t *testing.T) { run(t, 51, StatusPassed) })
}

func TestFinalizeTieFails(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	yes := crypto.GeneratePrivateKey()
	no := crypto.GeneratePrivateKey()
	env.mintTo(yes.PublicKey(), 500)
	env.mintTo(no.PublicKey(), 500)

	yesSalt := env.commit(yes, VoteYes, proposal)
	noSalt := env.commit(no, VoteNo, proposal)

	env.clock.Set(proposal.VotingEnd)
	if err := env.reveal(yes, VoteYes, yesSalt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if err := env.reveal(no, VoteNo, noSalt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}

	env.clock.Set(proposal.RevealEnd)
	finalized, err := env.processor.ProcessFinalizeProposal(&FinalizeProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if finalized.Status != StatusFailed {
		t.Fatalf("tie must fail, got %s", finalized.Status)
	}
	if finalized.ExecutionUnlocksAt != 0 {
		t.Fatal("failed proposal must keep a zero unlock time")
	}
}

func TestFinalizeRaceSecondCallerLoses(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	salt := env.commit(voter, VoteYes, proposal)

	env.clock.Set(proposal.VotingEnd)
	if err := env.reveal(voter, VoteYes, salt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}

	env.clock.Set(proposal.RevealEnd)
	tx := &FinalizeProposalTx{DAO: env.dao.Address, ProposalID: proposal.ProposalID}
	if _, err := env.processor.ProcessFinalizeProposal(tx); err != nil {
		t.Fatalf("first finalize failed: %v", err)
	}
	if _, err := env.processor.ProcessFinalizeProposal(tx); !errors.Is(err, ErrProposalTerminal) {
		t.Fatalf("second finalize should lose the race, got %v", err)
	}
}

func TestCancelBlocksEverything(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)

	if err := env.processor.ProcessCancelProposal(&CancelProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	}, env.authority.PublicKey()); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if proposal.Status != StatusCancelled {
		t.Fatalf("expected Cancelled, got %s", proposal.Status)
	}

	_, err := env.processor.ProcessCommitVote(&CommitVoteTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
		Commitment: ComputeCommitment(VoteYes, randomSalt(), voter.PublicKey().Identity()),
	}, voter.PublicKey())
	if !errors.Is(err, ErrProposalTerminal) {
		t.Fatalf("commit after cancel: expected ProposalTerminal, got %v", err)
	}

	env.clock.Set(proposal.RevealEnd)
	if _, err := env.processor.ProcessFinalizeProposal(&FinalizeProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	}); !errors.Is(err, ErrProposalTerminal) {
		t.Fatalf("finalize after cancel: expected ProposalTerminal, got %v", err)
	}
}

func TestCancelOnlyBeforeCommitEnd(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)
	proposal := env.createProposal(100, nil)

	env.clock.Set(proposal.VotingEnd)
	err := env.processor.ProcessCancelProposal(&CancelProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	}, env.authority.PublicKey())
	if !errors.Is(err, ErrCancelOnlyDuringVoting) {
		t.Fatalf("expected CancelOnlyDuringVoting, got %v", err)
	}
}

func TestVetoDuringTimelockOnly(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 60)
	proposal := env.createProposal(100, nil)

	voter := crypto.GeneratePrivateKey()
	env.mintTo(voter.PublicKey(), 100)
	salt := env.commit(voter, VoteYes, proposal)

	// Veto before pass is rejected.
	err := env.processor.ProcessVetoProposal(&VetoProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	}, env.authority.PublicKey())
	if !errors.Is(err, ErrVetoOnlyDuringTimelock) {
		t.Fatalf("expected VetoOnlyDuringTimelock before pass, got %v", err)
	}

	env.clock.Set(proposal.VotingEnd)
	if err := env.reveal(voter, VoteYes, salt, proposal); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	env.clock.Set(proposal.RevealEnd)
	if _, err := env.processor.ProcessFinalizeProposal(&FinalizeProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	// During the timelock the veto lands.
	if err := env.processor.ProcessVetoProposal(&VetoProposalTx{
		DAO:        env.dao.Address,
		ProposalID: proposal.ProposalID,
	}, env.authority.PublicKey()); err != nil {
		t.Fatalf("veto failed: %v", err)
	}
	if proposal.Status != StatusVetoed {
		t.Fatalf("expected Vetoed, got %s", proposal.Status)
	}
}

func TestDepositTreasury(t *testing.T) {
	env := newTestEnv(t, tokenWeighted(), 51, 1, 8, 5)

	if err := env.processor.ProcessDepositTreasury(&DepositTreasuryTx{
		DAO:            env.dao.Address,
		AmountLamports: 5_000_000,
	}); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if got := env.native.Balance(TreasuryAddress(env.dao.Address)); got != 5_000_000 {
		t.Fatalf("expected treasury balance 5000000, got %d", got)
	}
}
