package store

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	PrefixNullifier  = "nf_"
	PrefixCommitment = "cm_"
	PrefixSpent      = "sp_"
	PrefixLeaf       = "lf_"
	PrefixNote       = "sn_"
)

// NullifierKey addresses one entry of an identity's issued-nullifier set.
func NullifierKey(identity string, nullifierHash []byte) []byte {
	return []byte(fmt.Sprintf("%s%s_%s", PrefixNullifier, hex.EncodeToString([]byte(identity)), hex.EncodeToString(nullifierHash)))
}

// NullifierSetPrefix covers every nullifier issued under identity.
func NullifierSetPrefix(identity string) []byte {
	return []byte(fmt.Sprintf("%s%s_", PrefixNullifier, hex.EncodeToString([]byte(identity))))
}

func CommitmentKey(commitment []byte) []byte {
	return []byte(PrefixCommitment + hex.EncodeToString(commitment))
}

func SpentKey(commitment []byte) []byte {
	return []byte(PrefixSpent + hex.EncodeToString(commitment))
}

func LeafKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", PrefixLeaf, index))
}

func NoteKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", PrefixNote, index))
}

// ParseIndexKey returns the position encoded in a leaf or note key.
func ParseIndexKey(prefix string, key []byte) (uint64, error) {
	s := string(key)
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("invalid %s key", strings.TrimSuffix(prefix, "_"))
	}
	return strconv.ParseUint(strings.TrimPrefix(s, prefix), 10, 64)
}
