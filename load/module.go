package load

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/mod/modfile"
)

// ModulePath returns the module path of the Go module containing dir,
// walking parent directories until a go.mod is found.
func ModulePath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolve module dir")
	}
	for {
		data, err := os.ReadFile(filepath.Join(abs, "go.mod"))
		if err == nil {
			path := modfile.ModulePath(data)
			if path == "" {
				return "", errors.Newf("no module declaration in %s", filepath.Join(abs, "go.mod"))
			}
			return path, nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "read %s", filepath.Join(abs, "go.mod"))
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", errors.Newf("no go.mod found above %s", dir)
		}
		abs = parent
	}
}

// PackageDir resolves the filesystem directory of a loaded package's import
// path relative to the module root, for placing generated files.
func PackageDir(moduleRoot, modulePath, pkgPath string) (string, error) {
	if pkgPath == modulePath {
		return moduleRoot, nil
	}
	const sep = "/"
	if len(pkgPath) > len(modulePath) && pkgPath[:len(modulePath)] == modulePath && pkgPath[len(modulePath):len(modulePath)+1] == sep {
		return filepath.Join(moduleRoot, filepath.FromSlash(pkgPath[len(modulePath)+1:])), nil
	}
	return "", errors.Newf("package %s is outside module %s", pkgPath, modulePath)
}
