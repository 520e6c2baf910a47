package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/zkpool/utils"
)

// FieldElement is a canonical big-endian BN254 scalar.
type FieldElement [utils.FieldSize]byte

// Commitment is the tree leaf published for a deposit.
type Commitment = FieldElement

// NullifierHash is the hash of a nullifier secret, revealed at withdrawal.
type NullifierHash = FieldElement

func FieldFromElement(e fr.Element) FieldElement {
	return FieldElement(e.Bytes())
}

// FieldFromBigInt rejects negative values and values not below the modulus.
func FieldFromBigInt(v *big.Int) (FieldElement, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return FieldElement{}, fmt.Errorf("value out of field range: %v", v)
	}
	var f FieldElement
	v.FillBytes(f[:])
	return f, nil
}

func FieldFromBytes(bz []byte) (FieldElement, error) {
	if len(bz) != utils.FieldSize {
		return FieldElement{}, fmt.Errorf("invalid field element size: expected(%d), got(%d)", utils.FieldSize, len(bz))
	}
	return FieldFromBigInt(new(big.Int).SetBytes(bz))
}

// FieldFromString parses a decimal string, or a hex string with a 0x prefix.
func FieldFromString(s string) (FieldElement, error) {
	v, ok := new(big.Int), false
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok = v.SetString(s[2:], 16)
	} else {
		v, ok = v.SetString(s, 10)
	}
	if !ok {
		return FieldElement{}, fmt.Errorf("invalid field element: %q", s)
	}
	return FieldFromBigInt(v)
}

func MustField(s string) FieldElement {
	f, err := FieldFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f FieldElement) BigInt() *big.Int {
	return new(big.Int).SetBytes(f[:])
}

func (f FieldElement) Element() fr.Element {
	var e fr.Element
	e.SetBytes(f[:])
	return e
}

func (f FieldElement) IsZero() bool {
	return f == FieldElement{}
}

// String returns the decimal form used in public signals.
func (f FieldElement) String() string {
	return f.BigInt().String()
}

func (f FieldElement) Hex() string {
	return hex.EncodeToString(f[:])
}

func (f FieldElement) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FieldElement) UnmarshalText(text []byte) error {
	v, err := FieldFromString(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
