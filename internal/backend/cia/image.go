// Package cia implements the read-only container-image archive family
// (NCCH): title content packed into a single image file with a file
// table, individual entries optionally zstd-compressed.
package cia

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// Image file layout, all little-endian:
//
//	magic "CIAR" | version u16 | reserved u16 | file count u32
//	per file: name len u16 | name | entry flags u8 |
//	          payload offset u64 | stored size u64 | content size u64
//	payload area
//
// Payload offsets are relative to the end of the table.
const (
	imageMagic   = "CIAR"
	imageVersion = 1

	entryCompressed = 1 << 0

	maxImageName  = 0x106
	maxImageFiles = 1 << 20
)

// imageEntry is one file record of the table.
type imageEntry struct {
	name       string
	flags      uint8
	offset     uint64
	storedSize uint64
	size       uint64
}

// image is a parsed container image.
type image struct {
	f       *os.File
	base    int64 // start of the payload area
	entries map[string]*imageEntry
	order   []string
}

// openImage parses the header and file table of an image file.
func openImage(path string) (*image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	img, err := parseImage(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

func parseImage(f *os.File) (*image, error) {
	r := &countingReader{r: f}

	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if string(hdr[0:4]) != imageMagic {
		return nil, fmt.Errorf("bad image magic %q", hdr[0:4])
	}
	if v := binary.LittleEndian.Uint16(hdr[4:]); v != imageVersion {
		return nil, fmt.Errorf("unsupported image version %d", v)
	}
	count := binary.LittleEndian.Uint32(hdr[8:])
	if count > maxImageFiles {
		return nil, fmt.Errorf("image declares %d files", count)
	}

	img := &image{
		f:       f,
		entries: make(map[string]*imageEntry, count),
		order:   make([]string, 0, count),
	}
	for i := uint32(0); i < count; i++ {
		ent, err := readEntry(r)
		if err != nil {
			return nil, fmt.Errorf("file table entry %d: %w", i, err)
		}
		img.entries[ent.name] = ent
		img.order = append(img.order, ent.name)
	}
	img.base = r.n
	return img, nil
}

func readEntry(r io.Reader) (*imageEntry, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, err
	}
	if nameLen == 0 || nameLen > maxImageName {
		return nil, fmt.Errorf("bad name length %d", nameLen)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, err
	}
	var fixed struct {
		Flags      uint8
		Offset     uint64
		StoredSize uint64
		Size       uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return nil, err
	}
	return &imageEntry{
		name:       string(name),
		flags:      fixed.Flags,
		offset:     fixed.Offset,
		storedSize: fixed.StoredSize,
		size:       fixed.Size,
	}, nil
}

// load materializes an entry's content, decompressing if needed.
func (img *image) load(ent *imageEntry) ([]byte, error) {
	raw := make([]byte, ent.storedSize)
	if _, err := img.f.ReadAt(raw, img.base+int64(ent.offset)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", ent.name, err)
	}
	if ent.flags&entryCompressed == 0 {
		return raw, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, make([]byte, 0, ent.size))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", ent.name, err)
	}
	if uint64(len(out)) != ent.size {
		return nil, fmt.Errorf("%s: decompressed to %d bytes, expected %d", ent.name, len(out), ent.size)
	}
	return out, nil
}

func (img *image) close() error { return img.f.Close() }

// countingReader tracks how many bytes the table parse consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// WriteImage packs files into the image format, sorted by name for
// deterministic output. Compression is applied per entry only when it
// actually shrinks the content.
func WriteImage(w io.Writer, files map[string][]byte, compress bool) error {
	names := make([]string, 0, len(files))
	for name := range files {
		if len(name) == 0 || len(name) > maxImageName {
			return fmt.Errorf("bad image entry name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		defer enc.Close()
	}

	type packed struct {
		ent  imageEntry
		data []byte
	}
	packs := make([]packed, 0, len(names))
	var offset uint64
	for _, name := range names {
		content := files[name]
		ent := imageEntry{name: name, size: uint64(len(content))}
		data := content
		if enc != nil {
			if c := enc.EncodeAll(content, nil); len(c) < len(content) {
				data = c
				ent.flags |= entryCompressed
			}
		}
		ent.storedSize = uint64(len(data))
		ent.offset = offset
		offset += ent.storedSize
		packs = append(packs, packed{ent: ent, data: data})
	}

	var hdr [12]byte
	copy(hdr[0:4], imageMagic)
	binary.LittleEndian.PutUint16(hdr[4:], imageVersion)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(packs)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for _, p := range packs {
		if err := binary.Write(w, binary.LittleEndian, uint16(len(p.ent.name))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, p.ent.name); err != nil {
			return err
		}
		fixed := struct {
			Flags      uint8
			Offset     uint64
			StoredSize uint64
			Size       uint64
		}{p.ent.flags, p.ent.offset, p.ent.storedSize, p.ent.size}
		if err := binary.Write(w, binary.LittleEndian, fixed); err != nil {
			return err
		}
	}
	for _, p := range packs {
		if _, err := w.Write(p.data); err != nil {
			return err
		}
	}
	return nil
}
