package model

import "github.com/lattixnet/lattixd/domain/ledger/model/externalapi"

// CementManager cements blocks: it takes a block that achieved quorum and
// durably advances confirmation heights for it and every still-unconfirmed
// ancestor, across account chains linked by receives. Process never
// returns an error to the caller; completion is signaled through the
// cemented-block observers.
type CementManager interface {
	// Process cements originalBlock and its unconfirmed ancestry. The
	// caller must ensure originalBlock is stored and carries a sideband.
	Process(originalBlock *externalapi.Block)

	// FlushPending drains any accumulated write intents, blocking for its
	// turn on the ledger write queue. It is called when no further
	// confirmation work is queued, so partial bursts still land.
	FlushPending()

	// Stop makes the current and any future Process call unwind without
	// flushing further work. Committed progress stays durable.
	Stop()

	// PendingWritesEmpty returns whether the manager has accumulated
	// write intents that were not yet flushed.
	PendingWritesEmpty() bool

	// PendingWritesCount and AccountsConfirmedCount expose the sizes of
	// the manager's internal queues for operational monitoring.
	PendingWritesCount() uint64
	AccountsConfirmedCount() uint64
}
