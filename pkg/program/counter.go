package program

// Counter hands out monotonically increasing ids. It is owned by the
// coordinator and not safe for concurrent use.
type Counter struct {
	next uint64
}

// NewCounter returns a counter whose next id is next.
func NewCounter(next uint64) *Counter {
	return &Counter{next: next}
}

// Next returns a fresh id.
func (c *Counter) Next() uint64 {
	id := c.next
	c.next++
	return id
}

// Peek returns the id Next would return, without consuming it.
func (c *Counter) Peek() uint64 {
	return c.next
}
