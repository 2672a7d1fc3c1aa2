package templates

// Context is the data a fragment template is rendered with.
type Context map[string]any

// Insert sets key to value, allocating the map if needed.
func (c *Context) Insert(key string, value any) {
	if *c == nil {
		*c = Context{}
	}
	(*c)[key] = value
}

// Merge returns a new Context holding c overlaid with other.
func (c Context) Merge(other Context) Context {
	out := make(Context, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
