package transform

import "strings"

// segment is a run of output text. Raw segments come from template literal
// and string contents and are never re-indented.
type segment struct {
	text string
	raw  bool
}

// code is an output fragment under construction.
type code struct {
	segs []segment
}

func (c *code) write(s string) {
	if s != "" {
		c.segs = append(c.segs, segment{text: s})
	}
}

func (c *code) writeRaw(s string) {
	if s != "" {
		c.segs = append(c.segs, segment{text: s, raw: true})
	}
}

func (c *code) append(other *code) {
	if other != nil {
		c.segs = append(c.segs, other.segs...)
	}
}

func (c *code) String() string {
	var b strings.Builder
	for _, s := range c.segs {
		b.WriteString(s.text)
	}
	return b.String()
}

// shift returns a copy of c with delta inserted at the start of every
// non-blank line that begins after a non-raw newline.
func (c *code) shift(delta string) *code {
	if delta == "" {
		return c
	}
	out := &code{segs: make([]segment, 0, len(c.segs))}
	pending := false
	for _, s := range c.segs {
		if s.raw {
			if pending && s.text[0] != '\n' && s.text[0] != '\r' {
				out.write(delta)
			}
			pending = false
			out.writeRaw(s.text)
			continue
		}
		var b strings.Builder
		for i := 0; i < len(s.text); i++ {
			ch := s.text[i]
			if pending && ch != '\n' && ch != '\r' {
				b.WriteString(delta)
			}
			if ch == '\n' {
				pending = true
			} else if ch != '\r' {
				pending = false
			}
			b.WriteByte(ch)
		}
		out.write(b.String())
	}
	return out
}
