package chunkdata

import (
	"fmt"
)

// CloneChunk lets every chunk manager copy its data from one chunk to another.
func (r *Registry) CloneChunk(from, to Chunk) error {
	r.mustBeFinalized("CloneChunk")
	r.metrics.call("clone_chunk")
	for _, e := range r.chunks {
		if err := e.manager.CloneChunk(from, to); err != nil {
			return r.metrics.observe(ioError(e.manager, "CloneChunk", err))
		}
	}
	return nil
}

// CloneSubChunk lets every sub chunk manager copy its data from one sub chunk
// to another.
func (r *Registry) CloneSubChunk(fromChunk Chunk, from, to Segment) error {
	r.mustBeFinalized("CloneSubChunk")
	for _, e := range r.subChunks {
		if err := e.manager.CloneSubChunk(fromChunk, from, to); err != nil {
			return r.metrics.observe(ioError(e.manager, "CloneSubChunk", err))
		}
	}
	return nil
}

// CloneColumn clones the chunk level data and the data of every sub chunk from
// one chunk to another. Both chunks must have the same number of sub chunks.
func (r *Registry) CloneColumn(from, to Chunk) error {
	if from.Segments() != to.Segments() {
		return fmt.Errorf("chunkdata: cannot clone %d sub chunks into %d", from.Segments(), to.Segments())
	}
	if err := r.CloneChunk(from, to); err != nil {
		return err
	}
	for i := range from.Sub() {
		if err := r.CloneSubChunk(from, from.Segment(int16(i)), to.Segment(int16(i))); err != nil {
			return err
		}
	}
	return nil
}
