package gov

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/BOCK-CHAIN/BallotChain/types"
)

// SaltLen is the exact salt length accepted in commitment preimages. A
// full 32 bytes keeps brute-force preimage search out of reach.
const SaltLen = 32

// ComputeCommitment digests the 65-byte preimage vote ‖ salt ‖ voter
// identity. Binding the voter identity makes commitments non-transferable:
// the same (vote, salt) under a different voter yields a different digest.
func ComputeCommitment(vote Vote, salt [SaltLen]byte, voter types.Hash) types.Hash {
	var preimage [1 + SaltLen + 32]byte
	preimage[0] = byte(vote)
	copy(preimage[1:1+SaltLen], salt[:])
	copy(preimage[1+SaltLen:], voter.ToSlice())

	return types.Hash(sha256.Sum256(preimage[:]))
}

// CommitmentsEqual compares two digests in constant time.
func CommitmentsEqual(a, b types.Hash) bool {
	return subtle.ConstantTimeCompare(a.ToSlice(), b.ToSlice()) == 1
}
