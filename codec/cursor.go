package codec

// Cursor reads sequentially through a byte slice. Decoders share a
// cursor so each one resumes where the previous one stopped.
type Cursor struct {
	buf []byte
	off int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

func (c *Cursor) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		return 0, ErrTruncatedPayload
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// Next returns the next n bytes without copying them.
func (c *Cursor) Next(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, ErrTruncatedPayload
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Rest returns every unread byte and exhausts the cursor.
func (c *Cursor) Rest() []byte {
	b := c.buf[c.off:]
	c.off = len(c.buf)
	return b
}
