package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/consensys/gnark-crypto/signature"
	"github.com/kysee/zkpool/zk-pool/crypto"
)

const (
	identityPrefix = "zp"
	identityVer    = 0x01
)

// IdentityKey groups deposits. It is opaque to the registry; the default
// form is a base58check-encoded EdDSA public key.
type IdentityKey string

func (id IdentityKey) String() string {
	return string(id)
}

func EncodeIdentity(payload []byte) IdentityKey {
	return IdentityKey(identityPrefix + base58.CheckEncode(payload, identityVer))
}

func DecodeIdentity(id IdentityKey) ([]byte, error) {
	s := string(id)
	if !strings.HasPrefix(s, identityPrefix) {
		return nil, fmt.Errorf("wrong prefix: got(%.2s)", s)
	}
	bz, ver, err := base58.CheckDecode(s[len(identityPrefix):])
	if err != nil {
		return nil, err
	}
	if ver != identityVer {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", identityVer, ver)
	}
	return bz, nil
}

func Pub2Identity(pubKey signature.PublicKey) IdentityKey {
	return EncodeIdentity(pubKey.Bytes())
}

func Identity2Pub(id IdentityKey) (signature.PublicKey, error) {
	bz, err := DecodeIdentity(id)
	if err != nil {
		return nil, err
	}
	pub, err := crypto.ParsePub(bz)
	if err != nil {
		return nil, err
	}
	return pub, nil
}
