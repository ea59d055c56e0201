package chunkdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteChunkScopes(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	priv := newStoreManager("modB", "priv", true)
	r := NewBuilder().Manager(own, priv).Init()

	c := newTestChunk(0, 0)
	own.chunkValues[c.Pos] = 11
	priv.chunkValues[c.Pos] = 22

	doc := Document{"Host": int32(1)}
	require.NoError(t, r.WriteChunk(c, doc))

	assert.Equal(t, Document{"Value": int32(11)}, doc["modA:own"])
	assert.Equal(t, int32(22), doc["privValue"])
	assert.Equal(t, int32(1), doc["Host"])
	assert.NotContains(t, doc, "modB:priv")

	own.chunkValues[c.Pos], priv.chunkValues[c.Pos] = 0, 0
	require.NoError(t, r.ReadChunk(c, doc))
	assert.EqualValues(t, 11, own.chunkValues[c.Pos])
	assert.EqualValues(t, 22, priv.chunkValues[c.Pos])
}

func TestReadChunkAbsentData(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	r := NewBuilder().Manager(own).Init()
	c := newTestChunk(0, 0)

	require.NoError(t, r.ReadChunk(c, Document{"Other": int32(3)}))
	require.Len(t, own.chunkDocs, 1)
	assert.Nil(t, own.chunkDocs[0], "a chunk saved without the manager must be read as nil")
	assert.EqualValues(t, -1, own.chunkValues[c.Pos])

	// An empty compound is present data, not absent data.
	assert.Error(t, r.ReadChunk(c, Document{"modA:own": map[string]any{}}))
	require.Len(t, own.chunkDocs, 2)
	assert.NotNil(t, own.chunkDocs[1])
}

func TestReadChunkNotDocument(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	r := NewBuilder().Manager(own).Init()

	err := r.ReadChunk(newTestChunk(0, 0), Document{"modA:own": int32(5)})
	var ioErr *ManagerIOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, ErrNotDocument)
	assert.Empty(t, own.chunkDocs)
}

func TestReadChunkManagerError(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	r := NewBuilder().Manager(own).Init()

	err := r.ReadChunk(newTestChunk(0, 0), Document{"modA:own": Document{}})
	var ioErr *ManagerIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "ReadChunkFromNBT", ioErr.Op)
}

func TestColumnRoundTrip(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	priv := newStoreManager("modB", "priv", true)
	r := NewBuilder().Manager(own, priv).Init()

	c := newTestChunk(4, 4)
	own.chunkValues[c.Pos] = 1
	for i := range c.Segments() {
		s := c.Segment(int16(i))
		own.subValues[s.SubChunk] = int32(10 + i)
		priv.subValues[s.SubChunk] = int32(20 + i)
	}

	doc := Document{}
	require.NoError(t, r.WriteColumn(c, doc))

	sections, ok := doc["Sections"].([]any)
	require.True(t, ok)
	require.Len(t, sections, 4)
	sub := sections[2].(Document)
	assert.Equal(t, int32(2), sub["Y"])
	assert.Equal(t, Document{"Value": int32(12)}, sub["modA:own"])
	assert.Equal(t, int32(22), sub["privValue"])

	dst := newTestChunk(4, 4)
	require.NoError(t, r.ReadColumn(dst, doc))
	assert.EqualValues(t, 1, own.chunkValues[dst.Pos])
	for i := range dst.Segments() {
		s := dst.Segment(int16(i))
		assert.EqualValues(t, 10+i, own.subValues[s.SubChunk])
		assert.EqualValues(t, 20+i, priv.subValues[s.SubChunk])
	}
}

func TestReadColumnMissingSections(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	r := NewBuilder().Manager(own).Init()
	c := newTestChunk(0, 0)

	doc := Document{
		"modA:own": Document{"Value": int32(1)},
		"Sections": []any{
			map[string]any{"Y": int32(1), "modA:own": map[string]any{"Value": int32(5)}},
			// Sections outside the chunk range are ignored.
			map[string]any{"Y": int32(9)},
		},
	}
	require.NoError(t, r.ReadColumn(c, doc))

	assert.EqualValues(t, 5, own.subValues[c.Sub()[1]])
	assert.EqualValues(t, -1, own.subValues[c.Sub()[0]])
	assert.EqualValues(t, -1, own.subValues[c.Sub()[3]])
	require.Len(t, own.subDocs, 4)
	assert.Nil(t, own.subDocs[0])
}

func TestReadColumnInvalidSections(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	r := NewBuilder().Manager(own).Init()
	c := newTestChunk(0, 0)
	base := func() Document { return Document{"modA:own": Document{"Value": int32(1)}} }

	doc := base()
	doc["Sections"] = int32(1)
	assert.Error(t, r.ReadColumn(c, doc))

	doc = base()
	doc["Sections"] = []any{int32(1)}
	assert.ErrorIs(t, r.ReadColumn(c, doc), ErrNotDocument)

	doc = base()
	doc["Sections"] = []any{map[string]any{"Value": int32(1)}}
	assert.Error(t, r.ReadColumn(c, doc))
}

func TestCloneColumn(t *testing.T) {
	own := newStoreManager("modA", "own", false)
	r := NewBuilder().Manager(own).Init()

	from, to := newTestChunk(0, 0), newTestChunk(1, 0)
	own.chunkValues[from.Pos] = 7
	for i := range from.Segments() {
		own.subValues[from.Sub()[i]] = int32(i * 3)
	}

	require.NoError(t, r.CloneColumn(from, to))
	assert.EqualValues(t, 7, own.chunkValues[to.Pos])
	for i := range to.Segments() {
		assert.EqualValues(t, i*3, own.subValues[to.Sub()[i]])
	}
}
