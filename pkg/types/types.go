package types

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// ArchiveID identifies a storage backend family. The values are the id
// codes guest software passes to OpenArchive; each maps to exactly one
// registered factory.
type ArchiveID uint32

const (
	ArchiveSelfNCCH               ArchiveID = 0x00000003
	ArchiveSaveData               ArchiveID = 0x00000004
	ArchiveExtSaveData            ArchiveID = 0x00000006
	ArchiveSharedExtSaveData      ArchiveID = 0x00000007
	ArchiveSystemSaveData         ArchiveID = 0x00000008
	ArchiveSDMC                   ArchiveID = 0x00000009
	ArchiveSDMCWriteOnly          ArchiveID = 0x0000000A
	ArchiveNCCH                   ArchiveID = 0x2345678A
	ArchiveOtherSaveDataGeneral   ArchiveID = 0x567890B2
	ArchiveOtherSaveDataPermitted ArchiveID = 0x567890B4

	// ArchiveRemoteSaveData is a host extension: save data mirrored to
	// an object store. Not part of the console's id space.
	ArchiveRemoteSaveData ArchiveID = 0xF0000001
)

func (id ArchiveID) String() string {
	switch id {
	case ArchiveSelfNCCH:
		return "SelfNCCH"
	case ArchiveSaveData:
		return "SaveData"
	case ArchiveExtSaveData:
		return "ExtSaveData"
	case ArchiveSharedExtSaveData:
		return "SharedExtSaveData"
	case ArchiveSystemSaveData:
		return "SystemSaveData"
	case ArchiveSDMC:
		return "SDMC"
	case ArchiveSDMCWriteOnly:
		return "SDMCWriteOnly"
	case ArchiveNCCH:
		return "NCCH"
	case ArchiveOtherSaveDataGeneral:
		return "OtherSaveDataGeneral"
	case ArchiveOtherSaveDataPermitted:
		return "OtherSaveDataPermitted"
	case ArchiveRemoteSaveData:
		return "RemoteSaveData"
	default:
		return fmt.Sprintf("ArchiveID(0x%08X)", uint32(id))
	}
}

// ArchiveHandle references one opened archive in the handle table.
// Zero is reserved and never issued.
type ArchiveHandle uint64

// InvalidHandle is the reserved zero handle value.
const InvalidHandle ArchiveHandle = 0

// MediaType selects which physical storage tree a container lives on.
type MediaType uint32

const (
	MediaNAND     MediaType = 0
	MediaSD       MediaType = 1
	MediaGameCard MediaType = 2
)

func (m MediaType) String() string {
	switch m {
	case MediaNAND:
		return "nand"
	case MediaSD:
		return "sd"
	case MediaGameCard:
		return "gamecard"
	default:
		return fmt.Sprintf("media(%d)", uint32(m))
	}
}

// PathType discriminates the Path union.
type PathType uint32

const (
	PathInvalid PathType = iota
	PathEmpty
	PathBinary
	PathChar
)

// Path is the opaque archive- or file-addressing value supplied by the
// guest. Char paths are UTF-8 strings such as "/save/game.bin"; binary
// paths are fixed little-endian word layouts interpreted per backend
// family.
type Path struct {
	kind PathType
	data []byte
}

// EmptyPath addresses an archive family that needs no location (SDMC,
// SelfNCCH).
func EmptyPath() Path { return Path{kind: PathEmpty} }

// CharPath builds a textual path. Non-UTF-8 input yields an invalid path
// rather than silently corrupting the name.
func CharPath(s string) Path {
	if !utf8.ValidString(s) {
		return Path{kind: PathInvalid}
	}
	return Path{kind: PathChar, data: []byte(s)}
}

// BinaryPath builds a backend-interpreted binary path from raw words.
func BinaryPath(b []byte) Path {
	data := make([]byte, len(b))
	copy(data, b)
	return Path{kind: PathBinary, data: data}
}

// ExtDataPath builds the canonical binary path of an extended-data
// container: media type, low id, high id as little-endian u32 words.
func ExtDataPath(media MediaType, high, low uint32) Path {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], uint32(media))
	binary.LittleEndian.PutUint32(b[4:], low)
	binary.LittleEndian.PutUint32(b[8:], high)
	return Path{kind: PathBinary, data: b}
}

// SystemSaveDataPath builds the canonical binary path of a system
// save-data container.
func SystemSaveDataPath(high, low uint32) Path {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], high)
	binary.LittleEndian.PutUint32(b[4:], low)
	return Path{kind: PathBinary, data: b}
}

// SaveDataPath builds the binary path the OtherSaveData families use to
// address another title's container: media type and the 64-bit program id
// split into low/high words.
func SaveDataPath(media MediaType, programID uint64) Path {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], uint32(media))
	binary.LittleEndian.PutUint32(b[4:], uint32(programID))
	binary.LittleEndian.PutUint32(b[8:], uint32(programID>>32))
	return Path{kind: PathBinary, data: b}
}

func (p Path) Type() PathType { return p.kind }

// Valid reports whether the path carries a usable value.
func (p Path) Valid() bool { return p.kind != PathInvalid }

// IsEmpty reports whether the path is the empty variant.
func (p Path) IsEmpty() bool { return p.kind == PathEmpty }

// AsString returns the textual form of a char path. Calling it on any
// other variant returns false.
func (p Path) AsString() (string, bool) {
	if p.kind != PathChar {
		return "", false
	}
	return string(p.data), true
}

// AsBinary returns the raw words of a binary path.
func (p Path) AsBinary() ([]byte, bool) {
	if p.kind != PathBinary {
		return nil, false
	}
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out, true
}

// String renders the path for diagnostics only; binary paths are shown
// as hex.
func (p Path) String() string {
	switch p.kind {
	case PathEmpty:
		return "[empty]"
	case PathChar:
		return string(p.data)
	case PathBinary:
		return fmt.Sprintf("[binary %X]", p.data)
	default:
		return "[invalid]"
	}
}

// Mode is the open-mode bitfield for OpenFile.
type Mode uint32

const (
	ModeRead   Mode = 1 << 0
	ModeWrite  Mode = 1 << 1
	ModeCreate Mode = 1 << 2
)

func (m Mode) CanRead() bool  { return m&ModeRead != 0 }
func (m Mode) CanWrite() bool { return m&ModeWrite != 0 }
func (m Mode) Creates() bool  { return m&ModeCreate != 0 }

// FormatInfo is the format metadata of a formatted archive container.
type FormatInfo struct {
	TotalSize      uint32 `yaml:"total_size"`
	DirectoryCount uint32 `yaml:"directory_count"`
	FileCount      uint32 `yaml:"file_count"`
	DuplicateData  bool   `yaml:"duplicate_data"`
}

// Entry is one directory enumeration record.
type Entry struct {
	Name        string
	IsDirectory bool
	IsHidden    bool
	IsArchive   bool
	IsReadOnly  bool
	Size        uint64
}
