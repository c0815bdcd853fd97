package gov

// Phase is the position of a proposal on the protocol timeline, derived
// from wall-clock time and status. Every instruction asserts the phase it
// requires before touching state.
type Phase byte

const (
	PhaseCommit Phase = iota + 1
	PhaseReveal
	PhaseFinalizeEligible
	PhaseTimelock
	PhaseExecutable
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseCommit:
		return "Commit"
	case PhaseReveal:
		return "Reveal"
	case PhaseFinalizeEligible:
		return "FinalizeEligible"
	case PhaseTimelock:
		return "Timelock"
	case PhaseExecutable:
		return "Executable"
	case PhaseTerminal:
		return "Terminal"
	default:
		return "Unknown"
	}
}

// PhaseAt maps the proposal onto the phase clock at the given unix time.
func (p *ProposalAccount) PhaseAt(now int64) Phase {
	if p.Status.Terminal() || (p.Status == StatusPassed && p.IsExecuted) {
		return PhaseTerminal
	}

	if p.Status == StatusPassed {
		if now < p.ExecutionUnlocksAt {
			return PhaseTimelock
		}
		return PhaseExecutable
	}

	// Status is Voting.
	switch {
	case now < p.VotingEnd:
		return PhaseCommit
	case now < p.RevealEnd:
		return PhaseReveal
	default:
		return PhaseFinalizeEligible
	}
}

// requireCommitOpen gates commit and delegate instructions.
func requireCommitOpen(p *ProposalAccount, now int64) error {
	if p.Status != StatusVoting {
		return ErrProposalTerminal
	}
	if now >= p.VotingEnd {
		return ErrCommitPhaseClosed
	}
	return nil
}

// requireRevealOpen gates reveal instructions.
func requireRevealOpen(p *ProposalAccount, now int64) error {
	if p.Status != StatusVoting {
		return ErrProposalTerminal
	}
	if now < p.VotingEnd {
		return ErrRevealTooEarly
	}
	if now >= p.RevealEnd {
		return ErrRevealPhaseClosed
	}
	return nil
}

// requireFinalizeEligible gates the permissionless finalizer.
func requireFinalizeEligible(p *ProposalAccount, now int64) error {
	if p.Status != StatusVoting {
		return ErrProposalTerminal
	}
	if now < p.RevealEnd {
		return ErrFinalizeTooEarly
	}
	return nil
}

// requireExecutable gates the treasury executor.
func requireExecutable(p *ProposalAccount, now int64) error {
	if p.Status != StatusPassed {
		return ErrProposalTerminal
	}
	if p.IsExecuted {
		return ErrAlreadyExecuted
	}
	if now < p.ExecutionUnlocksAt {
		return ErrExecutionLocked
	}
	return nil
}
