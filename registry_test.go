package chunkdata

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLayout(t *testing.T) {
	a := newBytesManager("modA", "x", 4)
	b := newBytesManager("modB", "y", 2)

	r := NewRegistry()
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	r.Finalize()

	assert.Equal(t, 6, r.Capacity())
	assert.Equal(t, []Slot{
		{Key: "modA:x", Offset: 0, Size: 4},
		{Key: "modB:y", Offset: 4, Size: 2},
	}, r.Layout())
	assert.Equal(t, 1, a.sizeCalls, "MaxPacketSize must be called once")
	assert.Equal(t, 1, b.sizeCalls, "MaxPacketSize must be called once")

	// Querying the layout again must not consult the managers.
	_ = r.Capacity()
	_ = r.Layout()
	assert.Equal(t, 1, a.sizeCalls)
}

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	r.Finalize()

	assert.Equal(t, 0, r.Capacity())
	assert.Empty(t, r.Layout())

	data, err := r.WriteChunkPacket(newTestChunk(0, 0), AllSegments(4), true)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRegistryZeroSizeManager(t *testing.T) {
	a := newBytesManager("modA", "x", 0)
	b := newBytesManager("modB", "y", 3)

	r := NewBuilder().Manager(a, b).Init()
	assert.Equal(t, 3, r.Capacity())
	assert.Equal(t, 0, r.Layout()[1].Offset)
}

func TestRegistryCanonicalOrder(t *testing.T) {
	b := newBytesManager("modB", "y", 2)
	a := newBytesManager("modA", "x", 4)

	registration := NewBuilder().Manager(b, a).Init()
	canonical := NewBuilder().Manager(b, a).Option(WithLayoutOrder(OrderCanonical)).Init()

	assert.Equal(t, "modB:y", registration.Layout()[0].Key)
	assert.Equal(t, "modA:x", canonical.Layout()[0].Key)
	assert.Equal(t, 2, canonical.Layout()[1].Size)

	// Canonical layouts agree regardless of registration order.
	other := NewBuilder().
		Manager(newBytesManager("modA", "x", 4), newBytesManager("modB", "y", 2)).
		Option(WithLayoutOrder(OrderCanonical)).
		Init()
	assert.Equal(t, canonical.Layout(), other.Layout())
	assert.Equal(t, canonical.Fingerprint(), other.Fingerprint())
	assert.NotEqual(t, registration.Fingerprint(), canonical.Fingerprint())
}

func TestRegistryFingerprintTracksSizes(t *testing.T) {
	r1 := NewBuilder().Manager(newBytesManager("modA", "x", 4)).Init()
	r2 := NewBuilder().Manager(newBytesManager("modA", "x", 5)).Init()
	assert.NotEqual(t, r1.Fingerprint(), r2.Fingerprint())
}

func TestRegisterErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newBytesManager("modA", "x", 1)))

	err := r.Register(newMarkManager("modA", "x"))
	var dup *DuplicateManagerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "modA", dup.Domain)
	assert.Equal(t, "x", dup.ID)

	// The same id in another domain is a different manager.
	assert.NoError(t, r.Register(newMarkManager("modB", "x")))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newBytesManager("", "x", 1)))
	assert.Error(t, r.Register(newBytesManager("modC", "", 1)))
	assert.Error(t, r.Register(newBytesManager("mod:C", "x", 1)))
	assert.Error(t, r.Register(nameOnly{"modC", "x"}))

	r.Finalize()
	err = r.Register(newBytesManager("modC", "z", 1))
	var closed *RegistrationClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, "z", closed.ID)
	assert.Len(t, r.Managers(), 2)
}

func TestFinalizePanics(t *testing.T) {
	r := NewRegistry()
	r.Finalize()
	assert.Panics(t, r.Finalize)

	neg := NewRegistry()
	require.NoError(t, neg.Register(newBytesManager("modA", "x", -1)))
	assert.Panics(t, neg.Finalize)
}

func TestOrchestrationBeforeFinalizePanics(t *testing.T) {
	r := NewRegistry()
	c := newTestChunk(0, 0)

	assert.Panics(t, func() { _ = r.Capacity() })
	assert.Panics(t, func() { _, _ = r.WriteChunkPacket(c, 1, true) })
	assert.Panics(t, func() { _ = r.ReadChunk(c, Document{}) })
	assert.Panics(t, func() { _, _ = r.NewBlockChange(c, 0, 0, 0) })
	assert.Panics(t, func() { _, _ = r.CheckVersions(Document{}) })
}

func TestRegistryCapabilities(t *testing.T) {
	s := newStoreManager("modA", "store", false)
	p := newStoreManager("modA", "privileged", true)
	m := newMarkManager("modB", "mark")

	r := NewBuilder().Manager(s, p, m).Init()

	chunkScope, subScope, ok := r.Scope("modA", "store")
	require.True(t, ok)
	assert.Equal(t, ScopeOwnNode, chunkScope)
	assert.Equal(t, ScopeOwnNode, subScope)

	chunkScope, subScope, ok = r.Scope("modA", "privileged")
	require.True(t, ok)
	assert.Equal(t, ScopeParent, chunkScope)
	assert.Equal(t, ScopeParent, subScope)

	_, _, ok = r.Scope("modB", "mark")
	assert.False(t, ok)

	found, ok := r.Lookup("modB", "mark")
	require.True(t, ok)
	assert.Same(t, m, found)

	assert.Equal(t, 0, r.Capacity())
	assert.Len(t, r.blocks, 1)
	assert.Len(t, r.storage, 2)
}

func TestRegistryManagersOrder(t *testing.T) {
	b := newBytesManager("modB", "y", 1)
	a := newBytesManager("modA", "x", 1)

	r := NewRegistry(WithLayoutOrder(OrderCanonical))
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Register(a))

	before := r.Managers()
	assert.Equal(t, "modB", before[0].Domain())

	r.Finalize()
	after := r.Managers()
	assert.Equal(t, "modA", after[0].Domain())
}

func TestRegistryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newBytesManager("modA", "x", 4)
	a.fail = true

	r := NewBuilder().Manager(a).Option(WithMetrics(reg)).Init()
	_, err := r.WriteChunkPacket(newTestChunk(0, 0), 1, true)
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, r.metrics.calls.WithLabelValues("write_chunk_packet")))
	assert.Equal(t, 1.0, counterValue(t, r.metrics.errors.WithLabelValues("modA:x", "WriteToBuffer")))

	// A second registry on the same registerer shares the collectors.
	other := NewBuilder().Manager(newBytesManager("modA", "x", 4)).Option(WithMetrics(reg)).Init()
	assert.Same(t, r.metrics.calls, other.metrics.calls)
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("Canonical")
	require.NoError(t, err)
	assert.Equal(t, OrderCanonical, o)

	o, err = ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderRegistration, o)

	_, err = ParseOrder("random")
	assert.Error(t, err)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
