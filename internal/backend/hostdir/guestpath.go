package hostdir

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/PreciousTrainer/citra/pkg/fserr"
	"github.com/PreciousTrainer/citra/pkg/types"
)

// maxGuestPath bounds the length of a guest path after normalization.
const maxGuestPath = 0x400

// hostPath maps a guest path onto the host tree rooted at root. Only
// char (or empty, meaning the root itself) paths are accepted; the
// cleaned path can never climb above root.
func hostPath(root string, p types.Path) (string, error) {
	if p.IsEmpty() {
		return root, nil
	}
	s, ok := p.AsString()
	if !ok {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "unsupported path variant %v", p.Type())
	}
	if len(s) > maxGuestPath {
		return "", fserr.Newf(fserr.CodeInvalidArgument, "path too long: %d", len(s))
	}
	if strings.ContainsRune(s, 0) {
		return "", fserr.New(fserr.CodeInvalidArgument, "path contains NUL")
	}

	// Guest paths are absolute, slash-separated. Clean on the slash form
	// first so ".." components collapse before they touch the host.
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	clean := path.Clean(s)
	if clean == "/" {
		return root, nil
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
