package merkle

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kysee/zkpool/utils"
	"github.com/kysee/zkpool/zk-pool/types"
)

const (
	MaxDepth           = 32
	DefaultRootHistory = 30
)

// ZeroValue fills empty leaves: keccak256("zkpool") reduced into the field.
var ZeroValue = func() types.FieldElement {
	var e fr.Element
	e.SetBytes(crypto.Keccak256([]byte("zkpool")))
	return types.FieldFromElement(e)
}()

func HashNode(left, right types.FieldElement) types.FieldElement {
	var ret types.FieldElement
	copy(ret[:], utils.MiMCHash(left[:], right[:]))
	return ret
}

// Tree is a fixed-depth, append-only binary Merkle tree over MiMC-BN254.
// Only the filled part of every level is stored; missing nodes are the
// precomputed roots of empty subtrees.
type Tree struct {
	mtx sync.RWMutex

	depth  int
	zeros  []types.FieldElement   // zeros[l] = root of an empty subtree of height l
	levels [][]types.FieldElement // levels[0] = leaves
	index  map[types.FieldElement]uint64

	roots    []types.FieldElement // ring of recent roots
	rootsPos int
}

func New(depth, rootHistory int) (*Tree, error) {
	if depth <= 0 || depth > MaxDepth {
		return nil, fmt.Errorf("invalid tree depth: %d", depth)
	}
	if rootHistory <= 0 {
		rootHistory = DefaultRootHistory
	}

	zeros := make([]types.FieldElement, depth+1)
	zeros[0] = ZeroValue
	for l := 1; l <= depth; l++ {
		zeros[l] = HashNode(zeros[l-1], zeros[l-1])
	}

	t := &Tree{
		depth:  depth,
		zeros:  zeros,
		levels: make([][]types.FieldElement, depth+1),
		index:  make(map[types.FieldElement]uint64),
		roots:  make([]types.FieldElement, 0, rootHistory),
	}
	t.pushRoot(zeros[depth])
	return t, nil
}

// NewWithLeaves builds a tree and inserts leaves in order.
func NewWithLeaves(depth int, leaves []types.FieldElement) (*Tree, error) {
	t, err := New(depth, DefaultRootHistory)
	if err != nil {
		return nil, err
	}
	for _, l := range leaves {
		if _, err := t.Insert(l); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) Depth() int {
	return t.depth
}

func (t *Tree) Len() uint64 {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return uint64(len(t.levels[0]))
}

// Insert appends leaf and returns its index. Duplicate leaves are allowed;
// IndexOf reports the first one.
func (t *Tree) Insert(leaf types.FieldElement) (uint64, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	idx := uint64(len(t.levels[0]))
	if idx >= uint64(1)<<t.depth {
		return 0, fmt.Errorf("%w: capacity %d", types.ErrTreeFull, uint64(1)<<t.depth)
	}

	t.levels[0] = append(t.levels[0], leaf)
	if _, ok := t.index[leaf]; !ok {
		t.index[leaf] = idx
	}

	cur, pos := leaf, idx
	for l := 0; l < t.depth; l++ {
		var left, right types.FieldElement
		if pos%2 == 0 {
			left, right = cur, t.zeros[l]
		} else {
			left, right = t.levels[l][pos-1], cur
		}
		cur = HashNode(left, right)
		pos /= 2

		if pos < uint64(len(t.levels[l+1])) {
			t.levels[l+1][pos] = cur
		} else {
			t.levels[l+1] = append(t.levels[l+1], cur)
		}
	}
	t.pushRoot(cur)
	return idx, nil
}

func (t *Tree) IndexOf(leaf types.FieldElement) (uint64, bool) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	idx, ok := t.index[leaf]
	return idx, ok
}

// Proof returns the sibling path of the leaf at index against the current root.
func (t *Tree) Proof(index uint64) (*types.MerkleProof, error) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	if index >= uint64(len(t.levels[0])) {
		return nil, fmt.Errorf("leaf index out of range: %d >= %d", index, len(t.levels[0]))
	}

	mp := &types.MerkleProof{
		Root:         t.root(),
		PathElements: make([]types.FieldElement, t.depth),
		PathIndices:  make([]uint8, t.depth),
	}
	pos := index
	for l := 0; l < t.depth; l++ {
		sib := pos ^ 1
		if sib < uint64(len(t.levels[l])) {
			mp.PathElements[l] = t.levels[l][sib]
		} else {
			mp.PathElements[l] = t.zeros[l]
		}
		mp.PathIndices[l] = uint8(pos & 1)
		pos /= 2
	}
	return mp, nil
}

func (t *Tree) Root() types.FieldElement {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.root()
}

// IsKnownRoot reports whether root is the current root or one of the recent
// ones, so proofs built just before another deposit still verify.
func (t *Tree) IsKnownRoot(root types.FieldElement) bool {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	for _, r := range t.roots {
		if r == root {
			return true
		}
	}
	return false
}

func (t *Tree) root() types.FieldElement {
	if len(t.levels[t.depth]) == 0 {
		return t.zeros[t.depth]
	}
	return t.levels[t.depth][0]
}

func (t *Tree) pushRoot(r types.FieldElement) {
	if len(t.roots) < cap(t.roots) {
		t.roots = append(t.roots, r)
		return
	}
	t.roots[t.rootsPos] = r
	t.rootsPos = (t.rootsPos + 1) % len(t.roots)
}

// ComputeRoot folds leaf up the path.
func ComputeRoot(leaf types.FieldElement, pathElements []types.FieldElement, pathIndices []uint8) (types.FieldElement, error) {
	if len(pathElements) != len(pathIndices) {
		return types.FieldElement{}, fmt.Errorf("path length mismatch: %d elements, %d indices", len(pathElements), len(pathIndices))
	}
	cur := leaf
	for i, sib := range pathElements {
		switch pathIndices[i] {
		case 0:
			cur = HashNode(cur, sib)
		case 1:
			cur = HashNode(sib, cur)
		default:
			return types.FieldElement{}, fmt.Errorf("path index %d is not a bit: %d", i, pathIndices[i])
		}
	}
	return cur, nil
}

// VerifyProof checks mp in plain go.
func VerifyProof(leaf types.FieldElement, mp *types.MerkleProof) bool {
	root, err := ComputeRoot(leaf, mp.PathElements, mp.PathIndices)
	return err == nil && root == mp.Root
}
