package halconv

// Shared test fixtures.

import (
	"image"
	"image/jpeg"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tempDir creates a temporary directory and returns its path with a cleanup function.
func tempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "halconv")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }
}

// writeTestImage encodes a width x height image to path. The encoding follows the file
// extension (PNG or JPEG).
func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if strings.ToLower(filepath.Ext(path)) == ".png" {
		err = png.Encode(f, img)
	} else {
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatal(err)
	}
}

// writeTestFile writes content to path.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// halconXML is a well-formed two-object Halcon annotation.
const halconXML = `<annotation>
  <object>
    <name>cat</name>
    <bndbox>
      <x1>10</x1>
      <y1>10</y1>
      <x2>60</x2>
      <y2>40</y2>
    </bndbox>
  </object>
  <object>
    <name>dog</name>
    <bndbox>
      <x1>5</x1>
      <y1>0</y1>
      <x2>25</x2>
      <y2>30</y2>
    </bndbox>
  </object>
</annotation>`
