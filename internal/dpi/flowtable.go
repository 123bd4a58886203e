package dpi

import "sync"

// defaultFlowTableShardCount is the stripe width used when the caller
// doesn't configure flow_table_shards explicitly. Sharding by tuple hash is
// the natural first evolution of a single global lock over the whole table
// (see the design rationale for sharded locking in this module's notes);
// it keeps the per-shard critical section short while still serializing
// concurrent inserts and removes that land on the same shard.
const defaultFlowTableShardCount = 64

type flowTableShard struct {
	mu   sync.RWMutex
	sess map[FlowTuple]*Session
}

// flowTable is a bounded, sharded map of FlowTuple to *Session. Capacity is
// enforced globally across all shards: once the table holds
// maxConcurrentSessions live sessions, further inserts are dropped silently
// (4.B) rather than evicting an existing entry.
type flowTable struct {
	shards   []*flowTableShard
	capacity int

	count sync.Mutex // guards size below; kept separate from shard locks
	size  int

	nextSessionID sessionIDCounter
}

func newFlowTable(capacity int) *flowTable {
	return newFlowTableShards(capacity, defaultFlowTableShardCount)
}

// newFlowTableShards builds a flow table with an explicit shard count,
// honoring the flow_table_shards configuration knob.
func newFlowTableShards(capacity, shardCount int) *flowTable {
	if shardCount <= 0 {
		shardCount = defaultFlowTableShardCount
	}
	ft := &flowTable{capacity: capacity, shards: make([]*flowTableShard, shardCount)}
	for i := range ft.shards {
		ft.shards[i] = &flowTableShard{sess: make(map[FlowTuple]*Session)}
	}
	return ft
}

func (ft *flowTable) shardFor(t FlowTuple) *flowTableShard {
	return ft.shards[t.Hash()%uint64(len(ft.shards))]
}

// lookup returns the session for tuple, if present.
func (ft *flowTable) lookup(t FlowTuple) (*Session, bool) {
	shard := ft.shardFor(t)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	s, ok := shard.sess[t]
	return s, ok
}

// insert returns the existing session for t, or creates and inserts a new
// one if capacity allows. The second return value is false only when the
// table was at capacity and t was not already present.
func (ft *flowTable) insert(t FlowTuple, bufferCap int, nowNS int64) (*Session, bool) {
	shard := ft.shardFor(t)

	shard.mu.RLock()
	if s, ok := shard.sess[t]; ok {
		shard.mu.RUnlock()
		return s, true
	}
	shard.mu.RUnlock()

	ft.count.Lock()
	if ft.size >= ft.capacity {
		ft.count.Unlock()
		return nil, false
	}
	ft.size++
	ft.count.Unlock()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if s, ok := shard.sess[t]; ok {
		// lost the race; release the capacity slot we reserved
		ft.count.Lock()
		ft.size--
		ft.count.Unlock()
		return s, true
	}
	s := newSession(ft.nextSessionID.next(), t, bufferCap, nowNS)
	shard.sess[t] = s
	return s, true
}

// remove tears down and frees the session for t, if any.
func (ft *flowTable) remove(t FlowTuple) bool {
	shard := ft.shardFor(t)
	shard.mu.Lock()
	_, ok := shard.sess[t]
	if ok {
		delete(shard.sess, t)
	}
	shard.mu.Unlock()

	if ok {
		ft.count.Lock()
		ft.size--
		ft.count.Unlock()
	}
	return ok
}

// activeCount returns the number of live sessions across all shards.
func (ft *flowTable) activeCount() int {
	ft.count.Lock()
	defer ft.count.Unlock()
	return ft.size
}

// expiredTuples returns the tuples of every session whose LastSeenNS is
// older than nowNS - timeoutSec*1e9. The engine never calls this itself;
// it is driven by a client-owned sweeper (4.B).
func (ft *flowTable) expiredTuples(nowNS int64, timeoutSec int64) []FlowTuple {
	cutoff := nowNS - timeoutSec*1_000_000_000
	var expired []FlowTuple
	for _, shard := range ft.shards {
		shard.mu.RLock()
		for t, s := range shard.sess {
			s.mu.Lock()
			last := s.LastSeenNS
			s.mu.Unlock()
			if last < cutoff {
				expired = append(expired, t)
			}
		}
		shard.mu.RUnlock()
	}
	return expired
}

type sessionIDCounter struct {
	mu  sync.Mutex
	cur uint64
}

func (c *sessionIDCounter) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur++
	return c.cur
}
