package session

import "fmt"

// FileCommand is the closed set of opcodes a file session answers. The
// numeric values and the parameter/result word counts per command are
// part of the wire contract.
type FileCommand uint32

const (
	FileControl       FileCommand = 0x040100C4
	FileOpenSubFile   FileCommand = 0x08010100
	FileRead          FileCommand = 0x080200C2
	FileWrite         FileCommand = 0x08030102
	FileGetSize       FileCommand = 0x08040000
	FileSetSize       FileCommand = 0x08050080
	FileGetAttributes FileCommand = 0x08060000
	FileSetAttributes FileCommand = 0x08070040
	FileClose         FileCommand = 0x08080000
	FileFlush         FileCommand = 0x08090000
	FileSetPriority   FileCommand = 0x080A0040
	FileGetPriority   FileCommand = 0x080B0000
	FileOpenLinkFile  FileCommand = 0x080C0000
)

func (c FileCommand) String() string {
	switch c {
	case FileControl:
		return "Control"
	case FileOpenSubFile:
		return "OpenSubFile"
	case FileRead:
		return "Read"
	case FileWrite:
		return "Write"
	case FileGetSize:
		return "GetSize"
	case FileSetSize:
		return "SetSize"
	case FileGetAttributes:
		return "GetAttributes"
	case FileSetAttributes:
		return "SetAttributes"
	case FileClose:
		return "Close"
	case FileFlush:
		return "Flush"
	case FileSetPriority:
		return "SetPriority"
	case FileGetPriority:
		return "GetPriority"
	case FileOpenLinkFile:
		return "OpenLinkFile"
	default:
		return fmt.Sprintf("FileCommand(0x%08X)", uint32(c))
	}
}

// DirectoryCommand is the closed set of opcodes a directory session
// answers.
type DirectoryCommand uint32

const (
	DirControl DirectoryCommand = 0x040100C4
	DirRead    DirectoryCommand = 0x08010042
	DirClose   DirectoryCommand = 0x08020000
)

func (c DirectoryCommand) String() string {
	switch c {
	case DirControl:
		return "Control"
	case DirRead:
		return "Read"
	case DirClose:
		return "Close"
	default:
		return fmt.Sprintf("DirectoryCommand(0x%08X)", uint32(c))
	}
}

// Request is one protocol command: an opcode, its parameter words, and
// an optional inbound data buffer (the write payload).
type Request struct {
	Command uint32
	Params  []uint32
	Buffer  []byte
}

// Response carries the result word (zero on success), the result value
// words, an optional outbound buffer, and for OpenLinkFile the second
// endpoint referencing the same session.
type Response struct {
	Result uint32
	Values []uint32
	Buffer []byte
	Link   *File
}

// Ok reports whether the response carries a success result.
func (r Response) Ok() bool { return r.Result == ResultSuccess }
