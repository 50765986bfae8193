package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"catalograg/internal/domain"
)

type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*.xlsx"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// Resolve expands file, directory and glob arguments into a sorted,
// de-duplicated list of workbook paths. Explicit files are taken as given;
// directories and globs are filtered by the include and exclude patterns.
func (w *Walker) Resolve(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		paths = append(paths, abs)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			files, err := w.Walk(arg)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f.Path)
			}
		case err == nil:
			add(arg)
		case os.IsNotExist(err):
			matches, gerr := doublestar.FilepathGlob(arg)
			if gerr != nil {
				return nil, fmt.Errorf("%w: bad pattern %q: %v", domain.ErrValidation, arg, gerr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%w: no such file or pattern match: %s", domain.ErrValidation, arg)
			}
			for _, m := range matches {
				if !w.shouldExclude(filepath.ToSlash(m)) {
					add(m)
				}
			}
		default:
			return nil, err
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func (w *Walker) Walk(root string) ([]FileInfo, error) {
	var files []FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
