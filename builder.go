package chunkdata

// Builder configures a Registry before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	managers []DataManager
	options  []Option
}

// NewBuilder creates a new registry builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Manager adds managers to the builder. They are registered in the order given.
func (b *Builder) Manager(m ...DataManager) *Builder {
	b.managers = append(b.managers, m...)
	return b
}

// Option adds registry options to the builder.
//
// Example:
//
//	builder.Option(chunkdata.WithLayoutOrder(chunkdata.OrderCanonical))
func (b *Builder) Option(opts ...Option) *Builder {
	b.options = append(b.options, opts...)
	return b
}

// Build registers every manager with a new registry and finalizes it.
func (b *Builder) Build() (*Registry, error) {
	r := NewRegistry(b.options...)
	for _, m := range b.managers {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	r.Finalize()
	return r, nil
}

// Init is like Build but panics on registration errors.
// Registration errors are configuration errors that should stop the server
// before any world is loaded.
func (b *Builder) Init() *Registry {
	r, err := b.Build()
	if err != nil {
		panic("chunkdata: failed to build registry: " + err.Error())
	}
	return r
}
