package chunkdata

import (
	"fmt"
)

// sectionsKey is the chunk document key holding the list of sub chunk documents.
const sectionsKey = "Sections"

// sectionIndexKey is the sub chunk document key holding the sub chunk index.
const sectionIndexKey = "Y"

// WriteChunk lets every chunk manager serialise its data for c into doc.
//
// A privileged manager writes to doc directly. Every other manager writes to a
// fresh compound that is then stored in doc under the manager's key, so it can
// never touch its siblings.
func (r *Registry) WriteChunk(c Chunk, doc Document) error {
	r.mustBeFinalized("WriteChunk")
	r.metrics.call("write_chunk")
	for _, e := range r.chunks {
		if e.scope == ScopeParent {
			if err := e.manager.WriteChunkToNBT(c, doc); err != nil {
				return r.metrics.observe(ioError(e.manager, "WriteChunkToNBT", err))
			}
			continue
		}
		own := Document{}
		if err := e.manager.WriteChunkToNBT(c, own); err != nil {
			return r.metrics.observe(ioError(e.manager, "WriteChunkToNBT", err))
		}
		doc[e.key] = own
	}
	return nil
}

// ReadChunk lets every chunk manager deserialise its data for c from doc.
//
// A non-privileged manager whose key is missing from doc receives a nil
// Document, telling it the chunk was saved without it.
func (r *Registry) ReadChunk(c Chunk, doc Document) error {
	r.mustBeFinalized("ReadChunk")
	r.metrics.call("read_chunk")
	for _, e := range r.chunks {
		target := doc
		if e.scope == ScopeOwnNode {
			own, _, err := child(doc, e.key)
			if err != nil {
				return r.metrics.observe(ioError(e.manager, "ReadChunkFromNBT", fmt.Errorf("key %q: %w", e.key, err)))
			}
			target = own
		}
		if err := e.manager.ReadChunkFromNBT(c, target); err != nil {
			return r.metrics.observe(ioError(e.manager, "ReadChunkFromNBT", err))
		}
	}
	return nil
}

// WriteSubChunk lets every sub chunk manager serialise its data for s into doc,
// following the same scoping rules as WriteChunk.
func (r *Registry) WriteSubChunk(c Chunk, s Segment, doc Document) error {
	r.mustBeFinalized("WriteSubChunk")
	for _, e := range r.subChunks {
		if e.scope == ScopeParent {
			if err := e.manager.WriteSubChunkToNBT(c, s, doc); err != nil {
				return r.metrics.observe(ioError(e.manager, "WriteSubChunkToNBT", err))
			}
			continue
		}
		own := Document{}
		if err := e.manager.WriteSubChunkToNBT(c, s, own); err != nil {
			return r.metrics.observe(ioError(e.manager, "WriteSubChunkToNBT", err))
		}
		doc[e.key] = own
	}
	return nil
}

// ReadSubChunk lets every sub chunk manager deserialise its data for s from doc,
// following the same scoping rules as ReadChunk. doc may itself be nil if the
// sub chunk was not saved at all; privileged managers then receive nil too.
func (r *Registry) ReadSubChunk(c Chunk, s Segment, doc Document) error {
	r.mustBeFinalized("ReadSubChunk")
	for _, e := range r.subChunks {
		target := doc
		if e.scope == ScopeOwnNode {
			own, _, err := child(doc, e.key)
			if err != nil {
				return r.metrics.observe(ioError(e.manager, "ReadSubChunkFromNBT", fmt.Errorf("key %q: %w", e.key, err)))
			}
			target = own
		}
		if err := e.manager.ReadSubChunkFromNBT(c, s, target); err != nil {
			return r.metrics.observe(ioError(e.manager, "ReadSubChunkFromNBT", err))
		}
	}
	return nil
}

// WriteColumn writes the chunk level data of c into doc and stores one
// document per sub chunk in a list under the "Sections" key. Each sub chunk
// document records its index under "Y".
func (r *Registry) WriteColumn(c Chunk, doc Document) error {
	if err := r.WriteChunk(c, doc); err != nil {
		return err
	}
	if len(r.subChunks) == 0 {
		return nil
	}
	sections := make([]any, 0, c.Segments())
	for i := range c.Sub() {
		s := c.Segment(int16(i))
		sub := Document{sectionIndexKey: int32(i)}
		if err := r.WriteSubChunk(c, s, sub); err != nil {
			return err
		}
		sections = append(sections, sub)
	}
	doc[sectionsKey] = sections
	return nil
}

// ReadColumn reads a document written by WriteColumn into c. Sub chunks with no
// document in the "Sections" list are read with a nil Document.
func (r *Registry) ReadColumn(c Chunk, doc Document) error {
	if err := r.ReadChunk(c, doc); err != nil {
		return err
	}
	if len(r.subChunks) == 0 {
		return nil
	}
	sections, err := sectionsOf(doc, c.Segments())
	if err != nil {
		return err
	}
	for i := range c.Sub() {
		if err := r.ReadSubChunk(c, c.Segment(int16(i)), sections[i]); err != nil {
			return err
		}
	}
	return nil
}

// sectionsOf indexes the sub chunk documents of doc by sub chunk index.
func sectionsOf(doc Document, n int) ([]Document, error) {
	out := make([]Document, n)
	v, ok := doc[sectionsKey]
	if !ok {
		return out, nil
	}
	var list []any
	switch v := v.(type) {
	case []any:
		list = v
	case []map[string]any:
		list = make([]any, len(v))
		for i, sub := range v {
			list[i] = sub
		}
	default:
		return nil, fmt.Errorf("chunkdata: %q is %T, expected a list", sectionsKey, v)
	}
	for _, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("chunkdata: %q entry: %w", sectionsKey, ErrNotDocument)
		}
		index, ok := sectionIndex(sub[sectionIndexKey])
		if !ok {
			return nil, fmt.Errorf("chunkdata: %q entry has no valid %q tag", sectionsKey, sectionIndexKey)
		}
		if index < 0 || index >= n {
			// Sub chunks outside of the current range are dropped, as when the
			// dimension range shrank since the chunk was saved.
			continue
		}
		out[index] = sub
	}
	return out, nil
}

func sectionIndex(v any) (int, bool) {
	switch v := v.(type) {
	case int32:
		return int(v), true
	case int16:
		return int(v), true
	case uint8:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
