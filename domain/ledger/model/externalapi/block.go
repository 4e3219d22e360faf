package externalapi

// BlockType is the tag of a block variant. Legacy variants (send, receive,
// open, change) carry one operation each; state blocks unify them and
// express receives through the link field.
type BlockType byte

// Block type constants.
const (
	BlockTypeSend BlockType = iota + 1
	BlockTypeReceive
	BlockTypeOpen
	BlockTypeChange
	BlockTypeState
)

func (blockType BlockType) String() string {
	switch blockType {
	case BlockTypeSend:
		return "send"
	case BlockTypeReceive:
		return "receive"
	case BlockTypeOpen:
		return "open"
	case BlockTypeChange:
		return "change"
	case BlockTypeState:
		return "state"
	default:
		return "unknown"
	}
}

// BlockSideband is the metadata attached to a block when it is validated
// and stored. It is immutable thereafter, except for Successor which is
// filled in once a later block in the same chain points back at this one.
type BlockSideband struct {
	Height    uint64
	Successor BlockHash
	Account   Account
	Epoch     byte
}

// Block is one block in an account chain. Blocks are read-only to the
// confirmation subsystem.
type Block struct {
	Type           BlockType
	Previous       BlockHash
	Account        Account
	Source         BlockHash
	Link           BlockHash
	Representative Account
	Balance        uint64

	Sideband *BlockSideband
}

// SourceHash is the single polymorphic accessor for a block's source:
// the hash on another account's chain this block pulls funds from. For
// legacy receive and open blocks this is the explicit source field; for
// state blocks the link field is reinterpreted as a block hash. All other
// variants have no source and return the zero hash. Whether a non-zero
// result actually denotes a receive still depends on it resolving to a
// stored block and not being an epoch marker.
func (block *Block) SourceHash() BlockHash {
	switch block.Type {
	case BlockTypeReceive, BlockTypeOpen:
		return block.Source
	case BlockTypeState:
		return block.Link
	default:
		return BlockHash{}
	}
}

// AccountOwner returns the block's owning account: the explicit account
// field when present, otherwise the account recorded in the sideband
// (legacy send/receive/change blocks don't carry their account).
func (block *Block) AccountOwner() Account {
	if !block.Account.IsZero() {
		return block.Account
	}
	return block.Sideband.Account
}
