package halconv

// Halcon annotation specific functionality.

import (
	"encoding/xml"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
)

// halconBndbox is the bounding box of a Halcon object, given as top-left and bottom-right
// corners in pixel coordinates. Pointer fields distinguish absent corners from zero values.
type halconBndbox struct {
	X1 *int `xml:"x1"`
	Y1 *int `xml:"y1"`
	X2 *int `xml:"x2"`
	Y2 *int `xml:"y2"`
}

// halconObject is a single object annotation within a Halcon file.
type halconObject struct {
	Name   *string       `xml:"name"`
	Bndbox *halconBndbox `xml:"bndbox"`
}

// halconAnnotatedFile defines the Halcon annotation structure for a single file.
type halconAnnotatedFile struct {
	XMLName xml.Name       `xml:"annotation"`
	Objects []halconObject `xml:"object"`
}

// FromHalcon reads and parses Halcon annotations for every accepted image in imageDir. The
// annotation for an image is expected at <annDir>/<base name without extension>.xml.
//
// Images are enumerated in lexicographic file name order so that downstream id assignment is
// reproducible across filesystems. Any missing annotation file or malformed annotation aborts
// the parse with an error; there is no per-file recovery.
func FromHalcon(annDir, imageDir string) ([]AnnotatedFile, error) {
	imageFiles, err := imageFilesInDir(imageDir)
	if err != nil {
		return nil, err
	}
	log.Printf("Parsing Halcon labels for %d images", len(imageFiles))

	data := make([]AnnotatedFile, 0, len(imageFiles))
	for _, imagePath := range imageFiles {
		_, baseNoExt, _, err := splitPath(imagePath)
		if err != nil {
			return nil, err
		}

		annPath := filepath.Join(annDir, baseNoExt+".xml")
		annotations, err := ParseHalconFile(annPath)
		if err != nil {
			return nil, err
		}

		data = append(data, AnnotatedFile{Annotations: annotations, FilePath: imagePath})
	}

	return data, nil
}

// ParseHalconFile parses the Halcon annotation file at path and returns its annotations in file
// order.
//
// Each object must carry a name and all four bndbox corners; a missing field or a corner that is
// not an integer fails the whole parse. Geometric sanity (x2>=x1, y2>=y1) is not checked.
func ParseHalconFile(path string) ([]Annotation, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read annotation file %q: %v", path, err)
	}

	var fileData halconAnnotatedFile
	if err := xml.Unmarshal(enc, &fileData); err != nil {
		return nil, fmt.Errorf("failed to parse Halcon input from %q: %v", path, err)
	}

	annotations := make([]Annotation, 0, len(fileData.Objects))
	for i, obj := range fileData.Objects {
		if obj.Name == nil {
			return nil, fmt.Errorf("object %d in %q is missing the name field", i, path)
		}
		b := obj.Bndbox
		if b == nil || b.X1 == nil || b.Y1 == nil || b.X2 == nil || b.Y2 == nil {
			return nil, fmt.Errorf("object %d in %q is missing a bndbox corner field", i, path)
		}

		a := Annotation{Label: *obj.Name}
		a.Coords[0] = float64(*b.X1)
		a.Coords[1] = float64(*b.Y1)
		a.Coords[2] = float64(*b.X2)
		a.Coords[3] = float64(*b.Y2)
		annotations = append(annotations, a)
	}

	return annotations, nil
}
