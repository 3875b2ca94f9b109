package session

import "github.com/PreciousTrainer/citra/pkg/fserr"

// Result words returned in the first response word. The numbering is
// service-local; the transport maps these onto platform result words.
const (
	ResultSuccess         uint32 = 0x00000000
	ResultNotFound        uint32 = 0xC9200001
	ResultInvalidHandle   uint32 = 0xC9200002
	ResultUnimplemented   uint32 = 0xC9200003
	ResultInvalidArgument uint32 = 0xC9200004
	ResultAlreadyExists   uint32 = 0xC9200005
	ResultNotAFile        uint32 = 0xC9200006
	ResultNotADirectory   uint32 = 0xC9200007
	ResultNotEmpty        uint32 = 0xC9200008
	ResultWriteProtected  uint32 = 0xC9200009
	ResultNotFormatted    uint32 = 0xC920000A
	ResultBackendFailure  uint32 = 0xC92000FF
)

var resultWords = map[fserr.Code]uint32{
	fserr.CodeArchiveNotFound:   ResultNotFound,
	fserr.CodeNotFound:          ResultNotFound,
	fserr.CodeInvalidHandle:     ResultInvalidHandle,
	fserr.CodeUnimplemented:     ResultUnimplemented,
	fserr.CodeInvalidArgument:   ResultInvalidArgument,
	fserr.CodeAlreadyExists:     ResultAlreadyExists,
	fserr.CodeNotAFile:          ResultNotAFile,
	fserr.CodeNotADirectory:     ResultNotADirectory,
	fserr.CodeDirectoryNotEmpty: ResultNotEmpty,
	fserr.CodeWriteProtected:    ResultWriteProtected,
	fserr.CodeNotFormatted:      ResultNotFormatted,
	fserr.CodeBackendFailure:    ResultBackendFailure,
}

// resultOf maps an error onto its wire result word. A nil error is
// success; anything unclassified reports a backend failure rather than
// being swallowed.
func resultOf(err error) uint32 {
	if err == nil {
		return ResultSuccess
	}
	if w, ok := resultWords[fserr.CodeOf(err)]; ok {
		return w
	}
	return ResultBackendFailure
}
