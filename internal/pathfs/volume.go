package pathfs

import (
	"path/filepath"
	"strings"

	"github.com/isobusfs/isobusfs/internal/isoerrors"
)

// Volume maps an ISOBUS volume name onto a host directory, the way the
// server's config.go loads it from the volumes section of the INI file.
type Volume struct {
	Name      string // ISOBUS volume name, e.g. "U" or "LOG"
	HostRoot  string // absolute host directory this volume maps to
	ReadOnly  bool
	Removable bool // reported in VolumeStatusResp's status byte (spec §6.3)
}

// MaxHostPathLen bounds the translated host path; a path that would
// exceed it is rejected with CodeInvalidAccess rather than silently
// truncated (§4.4).
const MaxHostPathLen = 4096

var errUnknownVolume = isoerrors.New(isoerrors.KindSession, isoerrors.CodeVolumeNotInitialized, "unknown volume")
var errPathTooLong = isoerrors.New(isoerrors.KindSession, isoerrors.CodeInvalidAccess, "translated host path too long")

// ToHost translates an absolute, already-normalized ISOBUS path
// (`\\<vol>\a\b`) to a host filesystem path under the matching volume's
// root, or an error if the volume isn't configured.
func ToHost(isobusPath string, volumes []Volume) (string, error) {
	vol := VolumeOf(isobusPath)
	var match *Volume
	for i := range volumes {
		if volumes[i].Name == vol {
			match = &volumes[i]
			break
		}
	}
	if match == nil {
		return "", errUnknownVolume
	}

	root := string(Separator) + string(Separator) + vol
	rel := strings.TrimPrefix(isobusPath, root)
	rel = strings.TrimPrefix(rel, string(Separator))

	segs := strings.Split(rel, string(Separator))
	elems := make([]string, 0, len(segs)+1)
	elems = append(elems, match.HostRoot)
	for _, s := range segs {
		if s == "" {
			continue
		}
		elems = append(elems, s)
	}
	host := filepath.Join(elems...)
	if len(host) > MaxHostPathLen {
		return "", errPathTooLong
	}
	return host, nil
}
