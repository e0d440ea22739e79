package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/etnz/debroot/deb"
)

// Listener is a callback function that receives events during the build process.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventBuildLoadSuccess is emitted when the build file and its package definitions are loaded.
type EventBuildLoadSuccess struct {
	Path     string `json:"path,omitempty"`
	Output   string `json:"output,omitempty"`
	Packages int    `json:"packages"`
}

func (e EventBuildLoadSuccess) String() string { return jsonString(e) }

// EventPackageBuilt is emitted when a package is written to disk.
type EventPackageBuilt struct {
	FilePath      string `json:"file_path,omitempty"`
	Path          string `json:"path,omitempty"`
	Package       string `json:"package,omitempty"`
	Version       string `json:"version,omitempty"`
	Architecture  string `json:"architecture,omitempty"`
	InstalledSize int64  `json:"installed_size"`
	Size          int64  `json:"size"`
	Digest        string `json:"digest,omitempty"`
}

func (e EventPackageBuilt) String() string { return jsonString(e) }

func newPackageBuilt(filePath string, info *deb.PackageInfo, res *deb.Result) EventPackageBuilt {
	return EventPackageBuilt{
		FilePath:      filePath,
		Path:          res.Path,
		Package:       info.Name().String(),
		Version:       info.Version().String(),
		Architecture:  info.Architecture().String(),
		InstalledSize: res.InstalledSize,
		Size:          res.Size,
		Digest:        res.Digest.String(),
	}
}
