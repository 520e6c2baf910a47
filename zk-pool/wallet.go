package zk_pool

import (
	"bytes"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/holiman/uint256"
	"github.com/kysee/zkpool/utils"
	"github.com/kysee/zkpool/zk-pool/crypto"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/verifier"
)

type Wallet struct {
	Identity   types.IdentityKey
	PrivateKey *jubjub.PrivateKey
	notes      []*types.DepositNote
}

func NewWallet() (*Wallet, error) {
	prvk, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{
		Identity:   types.Pub2Identity(&prvk.PublicKey),
		PrivateKey: prvk,
	}, nil
}

// Deposit creates a deposit with fresh random secrets and keeps its note.
func (w *Wallet) Deposit(p *Pool) (*types.DepositNote, error) {
	nullifier := utils.RandBytes(types.MaxSecretSize)
	secret := utils.RandBytes(types.MaxSecretSize)

	note, err := p.Deposit(&w.PrivateKey.PublicKey, nullifier, secret)
	if err != nil {
		return nil, err
	}
	w.notes = append(w.notes, note)
	return note, nil
}

// SyncNotes replaces the local notes with the unspent ones the pool holds
// for this wallet.
func (w *Wallet) SyncNotes(p *Pool) error {
	notes, err := p.ScanNotes(w.PrivateKey)
	if err != nil {
		return err
	}

	w.notes = w.notes[:0]
	for _, n := range notes {
		st, err := p.Status(n.Commitment(p.reg.CommitHash()))
		if err != nil {
			return err
		}
		if st == verifier.Registered {
			w.notes = append(w.notes, n)
		}
	}
	return nil
}

func (w *Wallet) GetNote(idx int) *types.DepositNote {
	if idx < len(w.notes) {
		return w.notes[idx]
	}
	return nil
}

func (w *Wallet) GetNotesCount() int {
	return len(w.notes)
}

func (w *Wallet) DelNote(note *types.DepositNote) {
	found := -1
	for i, n := range w.notes {
		if bytes.Equal(n.Nullifier, note.Nullifier) {
			found = i
			break
		}
	}
	if found >= 0 {
		w.notes = append(w.notes[:found], w.notes[found+1:]...)
	}
}

func (w *Wallet) GetBalance() *uint256.Int {
	ret := uint256.NewInt(0)
	for _, n := range w.notes {
		ret = ret.Add(ret, n.Denomination)
	}
	return ret
}

// Withdraw spends the note and drops it from the wallet.
func (w *Wallet) Withdraw(p *Pool, note *types.DepositNote) (*types.Receipt, error) {
	rcpt, err := p.WithdrawNote(note)
	if err != nil {
		return nil, err
	}
	w.DelNote(note)
	return rcpt, nil
}
