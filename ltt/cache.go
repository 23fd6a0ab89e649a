package ltt

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/VoltDB/voltdb-sub009/elog"
	"github.com/VoltDB/voltdb-sub009/engineerr"
	"github.com/VoltDB/voltdb-sub009/metrics"
	"github.com/VoltDB/voltdb-sub009/topend"
)

// evictionLogLimiter throttles the "no unpinned block to evict" diagnostic
// across every Cache in the process (mirrors stream's overflow limiter).
var evictionLogLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

// Cache is the bounded LRU over LttBlocks: least-recently-referenced at the
// list front, most-recent at the back, plus an index from block id to list
// element (spec §3.5).
type Cache struct {
	top            topend.Topend
	maxBytes       int64
	siteID         int32
	nextCounter    int64
	generation     int64
	allocatedBytes int64

	list  *list.List // of *Block
	index map[ID]*list.Element

	hits, misses int64

	prefetchMu sync.Mutex
	prefetched map[ID][]byte

	m   *metrics.Set
	log interface {
		Warn(msg string, ctx ...interface{})
	}
}

// NewCache constructs an empty cache bounded by maxBytes, with block ids
// minted from siteID.
func NewCache(top topend.Topend, maxBytes int64, siteID int32, m *metrics.Set) *Cache {
	return &Cache{
		top:        top,
		maxBytes:   maxBytes,
		siteID:     siteID,
		list:       list.New(),
		index:      make(map[ID]*list.Element),
		prefetched: make(map[ID][]byte),
		m:          m,
		log:        elog.New("ltt"),
	}
}

// Prefetch fans out concurrent top-end loads for every non-resident id in
// ids, stashing their raw bytes for the next Fetch to pick up without
// blocking. It never touches the cache's LRU list or index, so it is safe
// to run while a Fetch/Release sequence for other blocks proceeds on the
// owning goroutine — only the private stash (guarded by prefetchMu) is
// shared.
func (c *Cache) Prefetch(ctx context.Context, ids []ID) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		elem, ok := c.index[id]
		if !ok || elem.Value.(*Block).IsResident() {
			continue
		}
		id := id
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			data, found, err := c.top.LoadLargeTempTableBlock(id.Int64())
			if err != nil || !found {
				return engineerr.NewRecoverable(fmt.Sprintf("ltt: prefetch failed for block %v", id))
			}
			c.prefetchMu.Lock()
			c.prefetched[id] = data
			c.prefetchMu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (c *Cache) takePrefetched(id ID) ([]byte, bool) {
	c.prefetchMu.Lock()
	defer c.prefetchMu.Unlock()
	data, ok := c.prefetched[id]
	if ok {
		delete(c.prefetched, id)
	}
	return data, ok
}

func (c *Cache) MaxSizeInBlocks() int { return int(c.maxBytes / BlockSizeBytes) }

// GetEmptyBlock ensures space, mints a new block id, and returns a fresh,
// pinned, resident block of the given stride (spec §4.5 get_empty_block).
func (c *Cache) GetEmptyBlock(stride int) *Block {
	c.ensureSpaceForNewBlock()

	id := ID{SiteID: c.siteID, Counter: c.nextCounter}
	c.nextCounter++
	c.generation++

	b := newBlock(id, stride, c.generation)
	elem := c.list.PushBack(b)
	c.index[id] = elem
	c.allocatedBytes += BlockSizeBytes
	if c.m != nil {
		c.m.CacheGeneration.Inc()
		c.m.CacheResidentB.Set(float64(c.allocatedBytes))
	}
	return b
}

// Fetch looks up id, loading it from the top end if non-resident, pins it,
// and touches it to the back of the LRU list (spec §4.5 fetch). A prior
// Prefetch call for id lets this skip the blocking top-end round trip.
func (c *Cache) Fetch(id ID) *Block {
	elem, ok := c.index[id]
	if !ok {
		panic(engineerr.NewFatal("ltt: request for unknown block %v (fetch)", id))
	}
	b := elem.Value.(*Block)

	if !b.IsResident() {
		c.misses++
		if c.m != nil {
			c.m.CacheMisses.Inc()
		}
		c.ensureSpaceForNewBlock()

		data, ok := c.takePrefetched(id)
		if !ok {
			var found bool
			var err error
			data, found, err = c.top.LoadLargeTempTableBlock(id.Int64())
			if err != nil || !found {
				panic(engineerr.NewRecoverable(fmt.Sprintf("ltt: failed to load block %v from top end", id)))
			}
		}
		b.SetData(data, b.stride)
		c.allocatedBytes += BlockSizeBytes
		if c.m != nil {
			c.m.CacheResidentB.Set(float64(c.allocatedBytes))
		}
	} else {
		c.hits++
		if c.m != nil {
			c.m.CacheHits.Inc()
		}
	}

	b.Pin()
	c.list.MoveToBack(elem)
	return b
}

// Peek returns the block for id without pinning it or touching LRU order;
// the caller must already hold a pin on it (e.g. mid-scan).
func (c *Cache) Peek(id ID) *Block {
	elem, ok := c.index[id]
	if !ok {
		panic(engineerr.NewFatal("ltt: request for unknown block %v (peek)", id))
	}
	return elem.Value.(*Block)
}

// Unpin marks the block as evictable again.
func (c *Cache) Unpin(id ID) {
	elem, ok := c.index[id]
	if !ok {
		panic(engineerr.NewFatal("ltt: request for unknown block %v (unpin)", id))
	}
	elem.Value.(*Block).Unpin()
}

// IsPinned reports whether id is currently pinned.
func (c *Cache) IsPinned(id ID) bool {
	elem, ok := c.index[id]
	if !ok {
		panic(engineerr.NewFatal("ltt: request for unknown block %v (blockIsPinned)", id))
	}
	return elem.Value.(*Block).IsPinned()
}

// Release destroys the cache entry for id. Releasing a pinned block is a
// recoverable error (spec §4.5).
func (c *Cache) Release(id ID) error {
	elem, ok := c.index[id]
	if !ok {
		panic(engineerr.NewFatal("ltt: request for unknown block %v (release)", id))
	}
	b := elem.Value.(*Block)
	if b.IsPinned() {
		return engineerr.NewRecoverable("ltt: request to release pinned block")
	}

	if b.IsStored() {
		ok, err := c.top.ReleaseLargeTempTableBlock(id.Int64())
		if err != nil || !ok {
			return engineerr.NewRecoverable("ltt: release of stored block failed")
		}
	}
	if b.IsResident() {
		c.allocatedBytes -= BlockSizeBytes
	}

	delete(c.index, id)
	c.list.Remove(elem)
	if c.m != nil {
		c.m.CacheResidentB.Set(float64(c.allocatedBytes))
	}
	return nil
}

// InvalidateStoredCopy asks the top end to drop block's on-disk copy, if
// any (used after an in-place mutation such as a sort).
func (c *Cache) InvalidateStoredCopy(b *Block) {
	if !b.IsStored() {
		return
	}
	ok, err := c.top.ReleaseLargeTempTableBlock(b.id.Int64())
	if err != nil || !ok {
		panic(engineerr.NewFatal("ltt: release of stored block %v failed during invalidation", b.id))
	}
	b.Unstore()
}

// ReleaseAll destroys every entry in the cache. Panics if any block is
// still pinned.
func (c *Cache) ReleaseAll() {
	for e := c.list.Front(); e != nil; e = e.Next() {
		b := e.Value.(*Block)
		if b.IsPinned() {
			panic(engineerr.NewFatal("ltt: request to release pinned block %v (releaseAllBlocks)", b.id))
		}
		if b.IsStored() {
			if ok, err := c.top.ReleaseLargeTempTableBlock(b.id.Int64()); err != nil || !ok {
				panic(engineerr.NewFatal("ltt: release of stored block %v failed", b.id))
			}
		}
	}
	c.list = list.New()
	c.index = make(map[ID]*list.Element)
	c.allocatedBytes = 0
}

func (c *Cache) ResidentBlockCount() int {
	n := 0
	for e := c.list.Front(); e != nil; e = e.Next() {
		if e.Value.(*Block).IsResident() {
			n++
		}
	}
	return n
}

func (c *Cache) TotalBlockCount() int { return c.list.Len() }
func (c *Cache) AllocatedBytes() int64 { return c.allocatedBytes }
func (c *Cache) Hits() int64   { return c.hits }
func (c *Cache) Misses() int64 { return c.misses }

// ensureSpaceForNewBlock walks the list from most-recent to least-recent,
// storing (or dropping, if already stored) the first unpinned resident
// block it finds, to make room for one more block (spec §4.5).
func (c *Cache) ensureSpaceForNewBlock() {
	if c.allocatedBytes+BlockSizeBytes <= c.maxBytes {
		return
	}
	if c.list.Len() == 0 {
		panic(engineerr.NewFatal("ltt: block cache needs a block stored but there are no blocks"))
	}

	for e := c.list.Back(); e != nil; e = e.Prev() {
		b := e.Value.(*Block)
		if b.IsPinned() || !b.IsResident() {
			continue
		}
		if !b.IsStored() {
			ok, err := c.top.StoreLargeTempTableBlock(b.id.Int64(), b.Encode())
			if err != nil || !ok {
				panic(engineerr.NewFatal("ltt: top end failed to store block %v", b.id))
			}
			b.ReleaseData()
		} else {
			b.ReleaseData()
		}
		c.allocatedBytes -= BlockSizeBytes
		return
	}

	if c.m != nil {
		c.m.CacheEvictFailed.Inc()
	}
	if evictionLogLimiter.Allow() {
		c.log.Warn("ltt: no unpinned resident block available to evict", "residentBytes", c.allocatedBytes, "maxBytes", c.maxBytes)
	}
	panic(engineerr.NewRecoverable("ltt: failed to find unpinned block to evict"))
}

