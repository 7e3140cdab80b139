package protocol

import (
	"bytes"
	"strings"
)

// ChunkKind classifies one read attempt.
type ChunkKind int

const (
	ChunkLine ChunkKind = iota
	ChunkEOF
)

// Chunk is the classified result of one line read.
type Chunk struct {
	Kind ChunkKind
	Line string
}

// EOF is the end-of-stream chunk.
var EOF = Chunk{Kind: ChunkEOF}

// LineChunk wraps a decoded line.
func LineChunk(line string) Chunk {
	return Chunk{Kind: ChunkLine, Line: line}
}

// IsEOF reports whether the stream ended.
func (c Chunk) IsEOF() bool {
	return c.Kind == ChunkEOF
}

// Frame classifies the result of a single line read. A failed read, an
// empty read, or data without the trailing delimiter all mean the stream is
// over. Otherwise the delimiter (and a preceding carriage return) is
// stripped and the bytes are decoded as UTF-8.
func Frame(raw []byte, err error) Chunk {
	if err != nil || len(raw) == 0 || raw[len(raw)-1] != Delimiter {
		return EOF
	}
	raw = bytes.TrimSuffix(raw[:len(raw)-1], []byte{'\r'})
	return LineChunk(strings.ToValidUTF8(string(raw), "�"))
}
