package stream

import "bytes"

// Framer splits a byte stream into newline-terminated lines. Chunk
// boundaries are arbitrary: a line may arrive across any number of Feed
// calls and is returned once its terminating newline arrives.
type Framer struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, without the
// trailing "\n" or "\r\n". Blank lines are skipped. Returned slices are
// owned by the caller.
func (f *Framer) Feed(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)

	var lines [][]byte
	start := 0
	for {
		i := bytes.IndexByte(f.buf[start:], '\n')
		if i < 0 {
			break
		}
		if line := trimLine(f.buf[start : start+i]); len(line) > 0 {
			lines = append(lines, bytes.Clone(line))
		}
		start += i + 1
	}

	if start > 0 {
		f.buf = append(f.buf[:0], f.buf[start:]...)
	}
	return lines
}

// Flush returns the unterminated remainder, or nil if it is blank, and
// empties the buffer.
func (f *Framer) Flush() []byte {
	line := trimLine(f.buf)
	var out []byte
	if len(line) > 0 {
		out = bytes.Clone(line)
	}
	f.buf = f.buf[:0]
	return out
}

// Buffered returns the number of bytes waiting for a newline.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func trimLine(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	return line
}
