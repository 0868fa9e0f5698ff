package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tasksquire/taskbridge/lib/server"
	"github.com/tasksquire/taskbridge/lib/storage"
)

// maxSyncAttempts bounds the download-then-upload loop. Each round only
// repeats when another client won the race for the chain tip, so a small
// number of rounds is enough.
const maxSyncAttempts = 3

// Sync exchanges operations with a sync server: download and apply every
// version after the local base, then upload the local unsynchronized
// operations as a new version. The working set is rebuilt afterwards.
// sealer may be nil for unencrypted servers.
func (r *Replica) Sync(ctx context.Context, srv server.Server, sealer *server.Sealer) error {
	for attempt := 0; attempt < maxSyncAttempts; attempt++ {
		if err := r.applyRemoteVersions(ctx, srv, sealer); err != nil {
			return err
		}

		local, err := r.store.Operations()
		if err != nil {
			return err
		}
		upload := make([]storage.Operation, 0, len(local))
		for _, op := range local {
			// Undo points are a local concern, they never leave the device.
			if op.Type != storage.OpUndoPoint {
				upload = append(upload, op)
			}
		}

		if len(upload) == 0 {
			r.logger.Info("sync complete, nothing to upload")
			return r.RebuildWorkingSet(true)
		}

		payload, err := json.Marshal(upload)
		if err != nil {
			return fmt.Errorf("encoding operations: %w", err)
		}
		if sealer != nil {
			if payload, err = sealer.Seal(payload); err != nil {
				return err
			}
		}

		base, err := r.store.BaseVersion()
		if err != nil {
			return err
		}
		versionID, err := srv.AddVersion(ctx, base, payload)
		if errors.Is(err, server.ErrVersionConflict) {
			r.logger.Info("sync lost the race for the chain tip, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return err
		}

		if err := r.store.SetBaseVersion(versionID); err != nil {
			return err
		}
		if err := r.store.TruncateOperations(0); err != nil {
			return err
		}
		r.logger.Info("sync complete", "uploaded", len(upload), "version", versionID)
		return r.RebuildWorkingSet(true)
	}
	return fmt.Errorf("replica: sync gave up after %d version conflicts", maxSyncAttempts)
}

// applyRemoteVersions walks the server's version chain from the local base
// to the tip, applying each payload directly to storage. Remote operations
// are not appended to the local log: they are already on the server.
func (r *Replica) applyRemoteVersions(ctx context.Context, srv server.Server, sealer *server.Sealer) error {
	base, err := r.store.BaseVersion()
	if err != nil {
		return err
	}
	for {
		v, found, err := srv.GetChildVersion(ctx, base)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		payload := v.Payload
		if sealer != nil {
			if payload, err = sealer.Open(payload); err != nil {
				return err
			}
		}
		var ops []storage.Operation
		if err := json.Unmarshal(payload, &ops); err != nil {
			return fmt.Errorf("decoding version %s: %w", v.ID, err)
		}
		for _, op := range ops {
			if err := r.apply(op); err != nil {
				return err
			}
		}
		if err := r.store.SetBaseVersion(v.ID); err != nil {
			return err
		}
		r.logger.Info("applied remote version", "version", v.ID, "operations", len(ops))
		base = v.ID
	}
}
