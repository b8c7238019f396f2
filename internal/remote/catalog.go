package remote

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"concierge/internal/capability"
	"concierge/internal/logging"
)

// Catalog is the cached view of a remote capability source. It owns its
// TTL explicitly (no package-level state): the Registry that holds a
// Catalog decides its refresh behavior at construction time. Snapshots
// are swapped atomically so readers never block on a refresh, and
// concurrent refreshes collapse into one upstream call.
type Catalog struct {
	transport Transport
	ttl       time.Duration
	store     *Store // optional warm-start persistence

	snap  atomic.Pointer[snapshot]
	group singleflight.Group

	// clock is overridable for tests.
	clock func() time.Time
}

type snapshot struct {
	descs   []capability.Descriptor
	fetched time.Time
}

// NewCatalog creates a catalog over a transport with the given cache TTL.
// store may be nil.
func NewCatalog(transport Transport, ttl time.Duration, store *Store) *Catalog {
	c := &Catalog{
		transport: transport,
		ttl:       ttl,
		store:     store,
		clock:     time.Now,
	}
	c.warmStart()
	return c
}

// warmStart seeds the snapshot from the persistent store, if any. A
// stale fetched time forces a live refresh on first use while still
// letting Invoke resolve names if that refresh fails.
func (c *Catalog) warmStart() {
	if c.store == nil {
		return
	}
	descs, err := c.store.LoadDescriptors(context.Background())
	if err != nil {
		logging.Get(logging.CategoryRemote).Warnw("catalog warm-start failed", "error", err)
		return
	}
	if len(descs) == 0 {
		return
	}
	c.snap.Store(&snapshot{descs: toCapabilityDescriptors(descs), fetched: time.Time{}})
	logging.Get(logging.CategoryRemote).Debugw("catalog warm-started", "count", len(descs))
}

// Descriptors returns the currently known remote descriptors. Within the
// TTL the cached snapshot is returned unchanged; past it, one refresh is
// attempted and on failure the previous snapshot (possibly empty) is
// served. Implements capability.RemoteSource.
func (c *Catalog) Descriptors(ctx context.Context) []capability.Descriptor {
	if s := c.snap.Load(); s != nil && c.clock().Sub(s.fetched) < c.ttl {
		return s.descs
	}

	// Collapse concurrent refreshes into a single upstream list call.
	v, _, _ := c.group.Do("refresh", func() (any, error) {
		return c.refresh(ctx), nil
	})
	return v.([]capability.Descriptor)
}

// refresh fetches the live listing. Failure degrades to the last
// snapshot; the registry never sees an error from here.
func (c *Catalog) refresh(ctx context.Context) []capability.Descriptor {
	log := logging.Get(logging.CategoryRemote)

	wire, err := c.transport.ListTools(ctx)
	if err != nil {
		log.Warnw("remote catalog unavailable, serving cached descriptors", "error", err)
		if s := c.snap.Load(); s != nil {
			return s.descs
		}
		return nil
	}

	descs := toCapabilityDescriptors(wire)
	c.snap.Store(&snapshot{descs: descs, fetched: c.clock()})
	log.Debugw("remote catalog refreshed", "count", len(descs))

	if c.store != nil {
		if err := c.store.SaveDescriptors(ctx, wire); err != nil {
			log.Warnw("failed to persist remote descriptors", "error", err)
		}
	}
	return descs
}

// Invoke calls a remote capability and maps the outcome into a
// capability.Result. Implements capability.RemoteSource.
func (c *Catalog) Invoke(ctx context.Context, name string, params map[string]any) *capability.Result {
	res, err := c.transport.CallTool(ctx, name, params)
	if err != nil {
		c.recordUsage(name, false, 0)
		return capability.Fail("remote call to %s failed: %v", name, err)
	}

	c.recordUsage(name, res.Success, res.LatencyMs)

	if !res.Success {
		errMsg := res.Error
		if errMsg == "" {
			errMsg = "remote capability failed without detail"
		}
		return capability.Fail("%s", errMsg)
	}

	out := &capability.Result{Success: true, Message: res.Message}
	if len(res.Output) > 0 {
		var data any
		if err := json.Unmarshal(res.Output, &data); err == nil {
			out.Data = data
		} else {
			out.Data = string(res.Output)
		}
	}
	out.Normalize()
	return out
}

func (c *Catalog) recordUsage(name string, success bool, latencyMs int64) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordUsage(context.Background(), name, success, latencyMs); err != nil {
		logging.Get(logging.CategoryRemote).Debugw("usage stat update failed", "name", name, "error", err)
	}
}

// toCapabilityDescriptors converts wire descriptors, parsing declared
// input schemas best-effort. A schema that fails to parse yields an
// empty schema rather than dropping the capability.
func toCapabilityDescriptors(wire []Descriptor) []capability.Descriptor {
	out := make([]capability.Descriptor, 0, len(wire))
	for _, d := range wire {
		cd := capability.Descriptor{
			Name:        d.Name,
			Description: d.Description,
			Category:    capability.Category(d.Category),
			Origin:      capability.OriginRemote,
		}
		if cd.Category == "" {
			cd.Category = capability.CategoryGeneral
		}
		if len(d.InputSchema) > 0 {
			var schema capability.Schema
			if err := json.Unmarshal(d.InputSchema, &schema); err == nil {
				cd.Schema = schema
			}
		}
		out = append(out, cd)
	}
	return out
}

var _ capability.RemoteSource = (*Catalog)(nil)
