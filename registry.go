package chunkdata

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/segmentio/fasthash/fnv1a"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// AccessScope is the document a persisted manager reads and writes.
// It is fixed once per manager when the layout is finalized.
type AccessScope int

const (
	// ScopeOwnNode gives the manager a compound stored under its "domain:id" key.
	ScopeOwnNode AccessScope = iota
	// ScopeParent gives the manager the raw chunk or sub chunk document.
	ScopeParent
)

// String returns the string representation of the scope.
func (s AccessScope) String() string {
	if s == ScopeParent {
		return "parent"
	}
	return "own"
}

// Slot is the byte range of a packet manager in the shared chunk packet.
type Slot struct {
	Key    string
	Offset int
	Size   int
}

// packetSlot binds a packet manager to its slot.
type packetSlot struct {
	Slot
	manager PacketDataManager
}

// chunkEntry binds a chunk manager to its access scope.
type chunkEntry struct {
	key     string
	scope   AccessScope
	manager ChunkDataManager
}

// subChunkEntry binds a sub chunk manager to its access scope.
type subChunkEntry struct {
	key     string
	scope   AccessScope
	manager SubChunkDataManager
}

// Registry holds the registered data managers and the layout computed from them.
//
// A Registry has two phases. While open, managers are added with Register.
// Finalize then computes the packet layout and freezes the registry; every
// orchestration method requires a finalized registry and panics otherwise.
//
// Concurrency:
// Register must not be called concurrently with Finalize. After Finalize the
// registry is read-only and safe for concurrent use.
type Registry struct {
	opts Options

	// managers holds registrations in registration order, keyed by "domain:id"
	managers *orderedmap.OrderedMap[string, DataManager]
	mu       sync.Mutex

	finalized atomic.Bool

	// The fields below are written once by Finalize and read-only afterwards.
	ordered     []DataManager
	packets     []packetSlot
	blocks      []BlockPacketDataManager
	chunks      []chunkEntry
	subChunks   []subChunkEntry
	storage     []StorageDataManager
	capacity    int
	fingerprint uint64

	notifier Notifier
	metrics  *metrics
}

// NewRegistry creates an open registry.
func NewRegistry(opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Notifier == nil {
		o.Notifier = LogNotifier{Logger: o.Logger}
	}
	return &Registry{
		opts:     o,
		managers: orderedmap.New[string, DataManager](),
		notifier: o.Notifier,
		metrics:  newMetrics(o.Metrics),
	}
}

// Default is the process-wide registry used by the package-level Register and
// Finalize functions.
var Default = NewRegistry()

// Register adds m to the Default registry.
func Register(m DataManager) error {
	return Default.Register(m)
}

// Finalize finalizes the Default registry.
func Finalize() {
	Default.Finalize()
}

// Register adds a manager to every capability it implements.
// It returns a *DuplicateManagerError if the (domain, id) pair is taken and a
// *RegistrationClosedError if the registry has been finalized.
func (r *Registry) Register(m DataManager) error {
	if m == nil {
		return fmt.Errorf("chunkdata: cannot register nil manager")
	}
	domain, id := m.Domain(), m.ID()
	if domain == "" || id == "" {
		return fmt.Errorf("chunkdata: manager %T has an empty domain or id", m)
	}
	if strings.Contains(domain, ":") {
		return fmt.Errorf("chunkdata: manager domain %q must not contain ':'", domain)
	}
	if !hasCapability(m) {
		return fmt.Errorf("chunkdata: manager %s:%s implements no data manager capability", domain, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized.Load() {
		return &RegistrationClosedError{Domain: domain, ID: id}
	}
	k := key(domain, id)
	if _, exists := r.managers.Get(k); exists {
		return &DuplicateManagerError{Domain: domain, ID: id}
	}
	r.managers.Set(k, m)

	r.logger().Debug("chunkdata: registered manager", "manager", k, "type", fmt.Sprintf("%T", m))
	return nil
}

// hasCapability reports whether m implements at least one capability interface.
func hasCapability(m DataManager) bool {
	switch m.(type) {
	case PacketDataManager, BlockPacketDataManager, ChunkDataManager, SubChunkDataManager:
		return true
	}
	return false
}

// Finalize computes the packet layout and closes registration.
// Every packet manager's MaxPacketSize is called exactly once, and its slot
// starts where the previous manager's slot ends.
//
// Finalize panics if called twice or if a manager reports a negative size:
// both are configuration errors that cannot be recovered from.
func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized.Load() {
		panic("chunkdata: registry layout already finalized")
	}

	ordered := make([]DataManager, 0, r.managers.Len())
	for pair := r.managers.Oldest(); pair != nil; pair = pair.Next() {
		ordered = append(ordered, pair.Value)
	}
	if r.opts.Order == OrderCanonical {
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if a.Domain() != b.Domain() {
				return a.Domain() < b.Domain()
			}
			return a.ID() < b.ID()
		})
	}

	h := fnv1a.Init64
	offset := 0
	for _, m := range ordered {
		k := Key(m)
		if pm, ok := m.(PacketDataManager); ok {
			size := pm.MaxPacketSize()
			if size < 0 {
				panic(fmt.Sprintf("chunkdata: manager %s reported negative max packet size %d", k, size))
			}
			r.packets = append(r.packets, packetSlot{
				Slot:    Slot{Key: k, Offset: offset, Size: size},
				manager: pm,
			})
			offset += size
			h = fnv1a.AddString64(h, "packet:"+k)
			h = fnv1a.AddUint64(h, uint64(size))
		}
		if bm, ok := m.(BlockPacketDataManager); ok {
			r.blocks = append(r.blocks, bm)
			h = fnv1a.AddString64(h, "block:"+k)
		}
		if cm, ok := m.(ChunkDataManager); ok {
			r.chunks = append(r.chunks, chunkEntry{key: k, scope: scopeOf(cm.ChunkPrivilegedAccess()), manager: cm})
		}
		if sm, ok := m.(SubChunkDataManager); ok {
			r.subChunks = append(r.subChunks, subChunkEntry{key: k, scope: scopeOf(sm.SubChunkPrivilegedAccess()), manager: sm})
		}
		if st, ok := m.(StorageDataManager); ok {
			r.storage = append(r.storage, st)
		}
	}
	r.ordered = ordered
	r.capacity = offset
	r.fingerprint = h
	r.finalized.Store(true)

	r.logger().Info("chunkdata: registry layout finalized",
		"managers", len(ordered),
		"packet_managers", len(r.packets),
		"capacity", r.capacity,
		"order", r.opts.Order.String(),
		"fingerprint", fmt.Sprintf("%016x", r.fingerprint))
}

// logger returns the configured logger, falling back to slog.Default().
func (r *Registry) logger() *slog.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return slog.Default()
}

func scopeOf(privileged bool) AccessScope {
	if privileged {
		return ScopeParent
	}
	return ScopeOwnNode
}

// mustBeFinalized panics if the layout has not been computed yet.
func (r *Registry) mustBeFinalized(op string) {
	if !r.finalized.Load() {
		panic("chunkdata: " + op + " called before the registry was finalized")
	}
}

// Finalized reports whether Finalize has been called.
func (r *Registry) Finalized() bool {
	return r.finalized.Load()
}

// Lookup returns the manager registered under (domain, id).
func (r *Registry) Lookup(domain, id string) (DataManager, bool) {
	if !r.finalized.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return r.managers.Get(key(domain, id))
}

// Managers returns every registered manager. Once finalized, the managers are
// returned in layout order; before that, in registration order.
func (r *Registry) Managers() []DataManager {
	if r.finalized.Load() {
		out := make([]DataManager, len(r.ordered))
		copy(out, r.ordered)
		return out
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DataManager, 0, r.managers.Len())
	for pair := r.managers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Layout returns the slot of every packet manager in layout order.
func (r *Registry) Layout() []Slot {
	r.mustBeFinalized("Layout")
	out := make([]Slot, len(r.packets))
	for i, p := range r.packets {
		out[i] = p.Slot
	}
	return out
}

// Capacity returns the size in bytes of a chunk packet: the sum of every
// packet manager's MaxPacketSize.
func (r *Registry) Capacity() int {
	r.mustBeFinalized("Capacity")
	return r.capacity
}

// Fingerprint returns a hash of the packet layout and the block packet manager
// order. Two processes exchanging packets must report the same fingerprint.
func (r *Registry) Fingerprint() uint64 {
	r.mustBeFinalized("Fingerprint")
	return r.fingerprint
}

// Scope returns the access scope of a persisted manager at chunk and sub chunk
// level. ok is false if no persisted manager is registered under (domain, id).
func (r *Registry) Scope(domain, id string) (chunkScope, subChunkScope AccessScope, ok bool) {
	r.mustBeFinalized("Scope")
	k := key(domain, id)
	for _, e := range r.chunks {
		if e.key == k {
			chunkScope, ok = e.scope, true
		}
	}
	for _, e := range r.subChunks {
		if e.key == k {
			subChunkScope, ok = e.scope, true
		}
	}
	return chunkScope, subChunkScope, ok
}
