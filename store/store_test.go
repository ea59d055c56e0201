package store

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/chunk"
	"github.com/google/uuid"
	"github.com/oriumgames/chunkdata"
	"github.com/oriumgames/chunkdata/vanilla"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRange = cube.Range{-16, 15}

func newChunk(x, z int32) chunkdata.Chunk {
	return chunkdata.NewChunk(world.ChunkPos{x, z}, chunk.New(0, testRange))
}

// recorder collects delivered notices.
type recorder struct {
	notices []chunkdata.Notice
}

func (r *recorder) Notify(_ uuid.UUID, n chunkdata.Notice) {
	r.notices = append(r.notices, n)
}

func TestColumnRoundTrip(t *testing.T) {
	reg := chunkdata.NewBuilder().Manager(vanilla.NewBlocks(testRange)).Init()
	db, err := OpenMemory(reg, nil)
	require.NoError(t, err)
	defer db.Close()

	src := newChunk(-3, 7)
	src.SetBlock(1, -16, 2, 0, 12)
	src.SetBlock(15, 15, 15, 0, 13)
	require.NoError(t, db.SaveColumn(src))

	dst := newChunk(-3, 7)
	ok, err := db.LoadColumn(dst)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 12, dst.Block(1, -16, 2, 0))
	assert.EqualValues(t, 13, dst.Block(15, 15, 15, 0))

	ok, err = db.LoadColumn(newChunk(0, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.DeleteColumn(src.Pos))
	ok, err = db.LoadColumn(dst)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenWorldVersions(t *testing.T) {
	dir := t.TempDir()

	reg := chunkdata.NewBuilder().Manager(vanilla.NewBlocks(testRange)).Init()
	db, err := Open(dir, reg, nil)
	require.NoError(t, err)

	report, err := db.OpenWorld()
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, report.World)
	assert.Empty(t, report.Notices)

	id, err := db.SaveLevel()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopen the world without the block manager.
	rec := &recorder{}
	empty := chunkdata.NewBuilder().Option(chunkdata.WithNotifier(rec)).Init()
	db, err = Open(dir, empty, nil)
	require.NoError(t, err)
	defer db.Close()

	report, err = db.OpenWorld()
	require.NoError(t, err)
	assert.Equal(t, id, report.World)
	require.Len(t, rec.notices, 1)
	assert.Equal(t, chunkdata.NoticeUninstall, rec.notices[0].Kind)
	assert.Equal(t, "dragonfly:blocks", rec.notices[0].Manager)
}

func TestColumnKey(t *testing.T) {
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 2, 0, 0, 0, keyColumn}, columnKey(world.ChunkPos{-1, 2}))
}
