package types

// MerkleProof is the read-only path of one leaf, produced by a MembershipTree.
// PathIndices[i] is 1 when the node at level i is a right child.
type MerkleProof struct {
	Root         FieldElement   `json:"root"`
	PathElements []FieldElement `json:"pathElements"`
	PathIndices  []uint8        `json:"pathIndices"`
}

// MembershipTree is the append-only commitment tree.
type MembershipTree interface {
	Insert(leaf FieldElement) (uint64, error)
	IndexOf(leaf FieldElement) (uint64, bool)
	Proof(index uint64) (*MerkleProof, error)
}
