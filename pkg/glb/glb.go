// Package glb reads and writes binary glTF containers (GLB version 2).
// A container is a 12-byte header followed by a JSON chunk and an optional binary chunk.
package glb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Container constants.
const (
	Magic   uint32 = 0x46546c67 // "glTF"
	Version uint32 = 2

	HeaderSize      = 12
	ChunkHeaderSize = 8

	ChunkJSON uint32 = 0x4e4f534a // "JSON"
	ChunkBIN  uint32 = 0x004e4942 // "BIN\0"
)

// GLB format errors.
var (
	ErrInvalidMagic       = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedVersion = errors.New("unsupported GLB version")
	ErrTruncated          = errors.New("truncated GLB data")
	ErrInvalidChunk       = errors.New("invalid GLB chunk")
)

// Header is the fixed 12-byte GLB header.
type Header struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// ChunkHeader precedes every chunk payload.
type ChunkHeader struct {
	Length uint32
	Type   uint32
}

// File is a decoded GLB container.
type File struct {
	Header Header
	JSON   []byte // JSON chunk payload, including trailing space padding
	BIN    []byte // binary chunk payload, including trailing zero padding
}

// Size returns the total container length for the given JSON and binary payloads.
func Size(jsonLen, binLen int) int {
	size := HeaderSize + ChunkHeaderSize + PaddedSize(jsonLen)
	if binLen > 0 {
		size += ChunkHeaderSize + PaddedSize(binLen)
	}
	return size
}

// Encode assembles a container from a JSON document and a binary blob.
// The JSON chunk is padded with spaces and the binary chunk with zero bytes.
// The binary chunk is omitted when bin is empty.
func Encode(jsonData, bin []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(Size(len(jsonData), len(bin)))
	// bytes.Buffer writes never fail.
	_ = Write(&buf, jsonData, bin)
	return buf.Bytes()
}

// Write writes a container to w.
func Write(w io.Writer, jsonData, bin []byte) error {
	jsonChunk := Pad(jsonData, ' ')
	binChunk := Pad(bin, 0)

	header := Header{
		Magic:   Magic,
		Version: Version,
		Length:  uint32(Size(len(jsonData), len(bin))),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := writeChunk(w, ChunkJSON, jsonChunk); err != nil {
		return fmt.Errorf("writing JSON chunk: %w", err)
	}
	if len(binChunk) > 0 {
		if err := writeChunk(w, ChunkBIN, binChunk); err != nil {
			return fmt.Errorf("writing BIN chunk: %w", err)
		}
	}
	return nil
}

func writeChunk(w io.Writer, typ uint32, payload []byte) error {
	ch := ChunkHeader{Length: uint32(len(payload)), Type: typ}
	if err := binary.Write(w, binary.LittleEndian, ch); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Parse decodes a container from a byte slice.
func Parse(data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}

	r := bytes.NewReader(data)

	f := &File{}
	if err := binary.Read(r, binary.LittleEndian, &f.Header); err != nil {
		return nil, ErrTruncated
	}
	if f.Header.Magic != Magic {
		return nil, ErrInvalidMagic
	}
	if f.Header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Header.Version)
	}
	if f.Header.Length < HeaderSize {
		return nil, fmt.Errorf("%w: declared length %d", ErrTruncated, f.Header.Length)
	}
	if int(f.Header.Length) > len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrTruncated, f.Header.Length, len(data))
	}

	// Chunks beyond the declared length are ignored.
	r = bytes.NewReader(data[HeaderSize:f.Header.Length])

	typ, payload, err := readChunk(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON chunk: %w", err)
	}
	if typ != ChunkJSON {
		return nil, fmt.Errorf("%w: first chunk type 0x%08x", ErrInvalidChunk, typ)
	}
	f.JSON = payload

	// Optional binary chunk; unknown chunk types are skipped.
	for r.Len() > 0 {
		typ, payload, err := readChunk(r)
		if err != nil {
			return nil, fmt.Errorf("reading chunk: %w", err)
		}
		if typ == ChunkBIN && f.BIN == nil {
			f.BIN = payload
		}
	}

	return f, nil
}

// ParseFile parses a container from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GLB file: %w", err)
	}
	return Parse(data)
}

func readChunk(r *bytes.Reader) (uint32, []byte, error) {
	var ch ChunkHeader
	if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
		return 0, nil, ErrTruncated
	}
	if int(ch.Length) > r.Len() {
		return 0, nil, ErrTruncated
	}
	if ch.Length%Alignment != 0 {
		return 0, nil, fmt.Errorf("%w: length %d not 4-byte aligned", ErrInvalidChunk, ch.Length)
	}
	payload := make([]byte, ch.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, ErrTruncated
	}
	return ch.Type, payload, nil
}

// TrimJSON returns the JSON payload without trailing space padding.
func (f *File) TrimJSON() []byte {
	return bytes.TrimRight(f.JSON, " ")
}
