package externalapi

// ConfirmationHeightInfo is the per-account confirmation record: the height
// of the highest cemented block in the account's chain and that block's
// hash. Height only ever increases, and Frontier is always the hash of the
// block at exactly Height.
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier BlockHash
}
