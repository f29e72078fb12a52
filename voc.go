package halconv

// Pascal VOC specific functionality.

import (
	"encoding/xml"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// VOCBndbox is a bounding box in VOC corner representation.
type VOCBndbox struct {
	Xmin int `xml:"xmin"`
	Ymin int `xml:"ymin"`
	Xmax int `xml:"xmax"`
	Ymax int `xml:"ymax"`
}

// VOCObject is a single object annotation within a VOC file.
type VOCObject struct {
	Name      string    `xml:"name"`
	Pose      string    `xml:"pose"`
	Truncated int       `xml:"truncated"`
	Difficult int       `xml:"difficult"`
	Bndbox    VOCBndbox `xml:"bndbox"`
}

// VOCSource describes the origin of a VOC annotation.
type VOCSource struct {
	Database string `xml:"database"`
}

// VOCSize is the pixel size of the annotated image.
type VOCSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

// VOCAnnotatedFile defines the VOC annotation structure for a single image.
type VOCAnnotatedFile struct {
	XMLName  xml.Name    `xml:"annotation"`
	Folder   string      `xml:"folder"`
	Filename string      `xml:"filename"`
	Path     string      `xml:"path"`
	Source   VOCSource   `xml:"source"`
	Size     VOCSize     `xml:"size"`
	Objects  []VOCObject `xml:"object"`
}

// toVOC converts the intermediate representation for a single image to the VOC structure. The
// image is opened only to read its pixel dimensions.
func toVOC(fileData AnnotatedFile) (VOCAnnotatedFile, error) {
	img, _, err := decodeImageConfig(fileData.FilePath)
	if err != nil {
		return VOCAnnotatedFile{},
				fmt.Errorf("failed to decode the image metadata of %q: %v", fileData.FilePath, err)
	}

	absPath, err := filepath.Abs(fileData.FilePath)
	if err != nil {
		return VOCAnnotatedFile{}, err
	}

	vocFileData := VOCAnnotatedFile{
		Folder:   "VOC",
		Filename: filepath.Base(fileData.FilePath),
		Path:     absPath,
		Source:   VOCSource{Database: "Unknown"},
		Size:     VOCSize{Width: img.Width, Height: img.Height, Depth: 3},
		Objects:  make([]VOCObject, len(fileData.Annotations)),
	}

	// Copy the boxes verbatim; VOC uses the same corner convention as the Halcon source.
	for i, a := range fileData.Annotations {
		vocFileData.Objects[i] = VOCObject{
			Name:      a.Label,
			Pose:      "Unspecified",
			Truncated: 0,
			Difficult: 0,
			Bndbox: VOCBndbox{
				Xmin: int(a.Coords[0]),
				Ymin: int(a.Coords[1]),
				Xmax: int(a.Coords[2]),
				Ymax: int(a.Coords[3]),
			},
		}
	}

	return vocFileData, nil
}

// WriteVOC writes a VOC dataset tree for data to outDir:
//
//	Annotations/<id>.xml
//	ImageSets/Main/trainval.txt
//	JPEGImages/
//
// Image files are not copied; JPEGImages is created but left empty. The categories list is
// accepted for interface symmetry with the other writers but is not consulted, as VOC carries
// class names inline.
//
// Any I/O error aborts the export.
func WriteVOC(outDir string, data []AnnotatedFile, categories []string) error {
	annotationsDir := filepath.Join(outDir, "Annotations")
	imageSetsDir := filepath.Join(outDir, "ImageSets", "Main")
	for _, dir := range []string{annotationsDir, imageSetsDir, filepath.Join(outDir, "JPEGImages")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory %q: %v", dir, err)
		}
	}

	imageIDs := make([]string, 0, len(data))
	for _, fileData := range data {
		vocFileData, err := toVOC(fileData)
		if err != nil {
			return err
		}

		enc, err := xml.MarshalIndent(vocFileData, "", "  ")
		if err != nil {
			return err
		}

		_, baseNoExt, _, err := splitPath(fileData.FilePath)
		if err != nil {
			return err
		}

		outFile := filepath.Join(annotationsDir, baseNoExt+".xml")
		if err := ioutil.WriteFile(outFile, enc, 0644); err != nil {
			return fmt.Errorf("cannot write file %q: %v", outFile, err)
		}

		imageIDs = append(imageIDs, baseNoExt)
	}

	// One id per line, last line unterminated.
	trainvalPath := filepath.Join(imageSetsDir, "trainval.txt")
	if err := ioutil.WriteFile(trainvalPath, []byte(strings.Join(imageIDs, "\n")), 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", trainvalPath, err)
	}

	log.Printf("Wrote VOC annotations for %d images to %s", len(imageIDs), outDir)
	return nil
}
