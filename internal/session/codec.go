package session

import (
	"encoding/binary"
	"fmt"

	"github.com/PreciousTrainer/citra/pkg/types"
)

// Directory entry flag bits used in the response buffer encoding.
const (
	entryFlagDirectory = 1 << 0
	entryFlagHidden    = 1 << 1
	entryFlagArchive   = 1 << 2
	entryFlagReadOnly  = 1 << 3
)

// maxEntryName bounds the length of an encoded entry name.
const maxEntryName = 0x106

// encoder builds little-endian response buffers.
type encoder struct {
	b []byte
}

func newEncoder(capacity int) *encoder {
	return &encoder{b: make([]byte, 0, capacity)}
}

func (e *encoder) bytes() []byte { return e.b }

func (e *encoder) writeU8(v byte) { e.b = append(e.b, v) }

func (e *encoder) writeU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.b = append(e.b, tmp[:]...)
}

func (e *encoder) writeU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.b = append(e.b, tmp[:]...)
}

// writeString writes a u16 length-prefixed string.
func (e *encoder) writeString(s string) error {
	b := []byte(s)
	if len(b) > maxEntryName {
		return fmt.Errorf("entry name too long: %d", len(b))
	}
	e.writeU16(uint16(len(b)))
	e.b = append(e.b, b...)
	return nil
}

// decoder reads little-endian primitives from a response buffer.
type decoder struct {
	b []byte
	o int
}

func newDecoder(b []byte) *decoder { return &decoder{b: b} }

func (d *decoder) remaining() int { return len(d.b) - d.o }

func (d *decoder) readU8() (byte, error) {
	if d.remaining() < 1 {
		return 0, fmt.Errorf("need 1 byte")
	}
	v := d.b[d.o]
	d.o++
	return v, nil
}

func (d *decoder) readU16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, fmt.Errorf("need 2 bytes")
	}
	v := binary.LittleEndian.Uint16(d.b[d.o : d.o+2])
	d.o += 2
	return v, nil
}

func (d *decoder) readU64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, fmt.Errorf("need 8 bytes")
	}
	v := binary.LittleEndian.Uint64(d.b[d.o : d.o+8])
	d.o += 8
	return v, nil
}

func (d *decoder) readString() (string, error) {
	ln, err := d.readU16()
	if err != nil {
		return "", err
	}
	if int(ln) > maxEntryName {
		return "", fmt.Errorf("entry name length %d exceeds limit %d", ln, maxEntryName)
	}
	if d.remaining() < int(ln) {
		return "", fmt.Errorf("need %d bytes", ln)
	}
	v := string(d.b[d.o : d.o+int(ln)])
	d.o += int(ln)
	return v, nil
}

// encodeEntries packs directory entries into the wire layout: name
// (length-prefixed), flag byte, u64 size.
func encodeEntries(entries []types.Entry) ([]byte, error) {
	enc := newEncoder(len(entries) * 32)
	for _, ent := range entries {
		if err := enc.writeString(ent.Name); err != nil {
			return nil, err
		}
		var flags byte
		if ent.IsDirectory {
			flags |= entryFlagDirectory
		}
		if ent.IsHidden {
			flags |= entryFlagHidden
		}
		if ent.IsArchive {
			flags |= entryFlagArchive
		}
		if ent.IsReadOnly {
			flags |= entryFlagReadOnly
		}
		enc.writeU8(flags)
		enc.writeU64(ent.Size)
	}
	return enc.bytes(), nil
}

// DecodeEntries unpacks a directory Read response buffer. It is the
// inverse of the session's entry encoding and is used by in-process
// consumers of the protocol (the CLI, tests).
func DecodeEntries(buf []byte, count int) ([]types.Entry, error) {
	dec := newDecoder(buf)
	out := make([]types.Entry, 0, count)
	for i := 0; i < count; i++ {
		name, err := dec.readString()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		flags, err := dec.readU8()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		size, err := dec.readU64()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, types.Entry{
			Name:        name,
			IsDirectory: flags&entryFlagDirectory != 0,
			IsHidden:    flags&entryFlagHidden != 0,
			IsArchive:   flags&entryFlagArchive != 0,
			IsReadOnly:  flags&entryFlagReadOnly != 0,
			Size:        size,
		})
	}
	return out, nil
}
