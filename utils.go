package halconv

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// imageFileExts are the accepted image file extensions (lower case, with dot).
var imageFileExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// imageFilesInDir returns the paths of all regular image files found directly in dirPath, in
// lexicographic file name order. Entries without an accepted image extension
// (case-insensitive) are skipped silently.
func imageFilesInDir(dirPath string) (files []string, err error) {
	infos, err := ioutil.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}

	files = make([]string, 0, len(infos))
	for _, fi := range infos {
		// Must be a regular file or a symlink and have an accepted extension.
		if !fi.Mode().IsRegular() && fi.Mode()&os.ModeSymlink == 0 {
			continue
		}
		if !imageFileExts[strings.ToLower(filepath.Ext(fi.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dirPath, fi.Name()))
	}

	return files, nil
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", fmt.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// readFile uses ioutil.ReadAll to read the file at path.
func readFile(path string) (data []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(f, &err)

	data, err = ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
