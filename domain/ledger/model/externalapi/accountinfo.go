package externalapi

// AccountInfo is the per-account chain metadata: the newest block (head),
// the first block (open) and the number of blocks in the chain.
type AccountInfo struct {
	Head       BlockHash
	Open       BlockHash
	BlockCount uint64
}
