package types

import "errors"

var (
	// registration
	ErrDuplicateNullifier  = errors.New("duplicate nullifier")
	ErrDuplicateCommitment = errors.New("duplicate commitment")
	ErrInvalidSecret       = errors.New("invalid secret")

	// withdrawal
	ErrNotFound          = errors.New("commitment not found")
	ErrNotInTree         = errors.New("commitment not in membership tree")
	ErrNullifierMismatch = errors.New("nullifier hash mismatch")
	ErrAlreadySpent      = errors.New("commitment already spent")
	ErrInvalidProof      = errors.New("invalid proof")

	// proving and startup
	ErrProving  = errors.New("proving error")
	ErrConfig   = errors.New("config error")
	ErrTreeFull = errors.New("membership tree is full")
)
