package bridge

import (
	"context"
	"fmt"

	"github.com/tasksquire/taskbridge/lib/replica"
	"github.com/tasksquire/taskbridge/lib/server"
)

// Sync synchronizes the replica with the server described by the JSON
// configuration. Unlike the other entry points it reports its failure
// cause, as a string the caller can display: "SUCCESS" on success,
// "ERROR: <reason>" otherwise. The sync budget, not the short per-call
// bound, limits both the lock wait and the network round trips.
func (b *Bridge) Sync(h uint64, configJSON string) string {
	cfg, err := server.ParseConfig(configJSON)
	if err != nil {
		countOp("sync")
		b.fail("sync", err)
		return fmt.Sprintf("ERROR: Invalid sync config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.syncTimeout)
	defer cancel()

	srv, sealer, err := server.New(ctx, cfg)
	if err != nil {
		countOp("sync")
		b.fail("sync", err)
		return fmt.Sprintf("ERROR: %v", err)
	}

	err = b.run("sync", h, b.syncTimeout, func(r *replica.Replica) error {
		return r.Sync(ctx, srv, sealer)
	})
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return "SUCCESS"
}
