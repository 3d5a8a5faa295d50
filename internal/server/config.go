// Package server implements the file-server half of isobusfs: the
// per-client session table (§4.7), the reference-counted open-handle
// table (§4.8), the status beacon (§4.9), and the command-group
// dispatch that ties them to the wire codec and path engine.
package server

import (
	"fmt"

	"github.com/Unknwon/goconfig"

	"github.com/isobusfs/isobusfs/internal/pathfs"
)

// Config is the server's static configuration (spec §6.3): the volume
// table, the default volume, and the manufacturer-specific directory
// name used to expand a leading `~\`.
type Config struct {
	Volumes       []pathfs.Volume
	DefaultVolume string
	MFSDir        string
}

const volumeSectionPrefix = "volume "

// LoadConfig reads an INI-style file with the teacher's own
// `github.com/Unknwon/goconfig` (already a dependency for its config
// store), one `[volume "NAME"]` section per volume plus a `[server]`
// section for default_volume/mfs_dir (SPEC_FULL.md AMBIENT STACK).
func LoadConfig(path string) (*Config, error) {
	cfg, err := goconfig.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: load config %q: %w", path, err)
	}

	out := &Config{
		DefaultVolume: cfg.MustValue("server", "default_volume", ""),
		MFSDir:        cfg.MustValue("server", "mfs_dir", "MFSDIR"),
	}

	for _, section := range cfg.GetSectionList() {
		name, ok := parseVolumeSection(section)
		if !ok {
			continue
		}
		hostPath := cfg.MustValue(section, "path", "")
		if hostPath == "" {
			return nil, fmt.Errorf("server: volume %q missing path", name)
		}
		out.Volumes = append(out.Volumes, pathfs.Volume{
			Name:      name,
			HostRoot:  hostPath,
			ReadOnly:  !cfg.MustBool(section, "writable", false),
			Removable: cfg.MustBool(section, "removable", false),
		})
	}

	if out.DefaultVolume == "" && len(out.Volumes) > 0 {
		out.DefaultVolume = out.Volumes[0].Name
	}
	return out, nil
}

func parseVolumeSection(section string) (string, bool) {
	// goconfig represents `[volume "NAME"]` as the section name
	// `volume "NAME"` once quoting is stripped by the parser; guard both
	// the quoted and bare forms so a hand-edited file without quotes
	// still loads.
	if len(section) <= len(volumeSectionPrefix) || section[:len(volumeSectionPrefix)] != volumeSectionPrefix {
		return "", false
	}
	name := section[len(volumeSectionPrefix):]
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	if name == "" {
		return "", false
	}
	return name, true
}
