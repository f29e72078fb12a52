package halconv

// COCO object detection specific functionality.

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
)

// COCOCategory is a detection class in a COCO dataset.
type COCOCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// COCOImage describes a single image in a COCO dataset.
type COCOImage struct {
	ID           int    `json:"id"`
	FileName     string `json:"file_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	DateCaptured string `json:"date_captured"`
	License      int    `json:"license"`
	COCOURL      string `json:"coco_url"`
	FlickrURL    string `json:"flickr_url"`
}

// COCOAnnotation is a single object annotation in a COCO dataset. The box is in COCO
// [x, y, width, height] form.
type COCOAnnotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Bbox         [4]float64  `json:"bbox"`
	Area         float64     `json:"area"`
	Iscrowd      int         `json:"iscrowd"`
	Segmentation [][]float64 `json:"segmentation"`
}

// COCODataset is a complete COCO detection document.
type COCODataset struct {
	Info        struct{}         `json:"info"`
	Licenses    []struct{}       `json:"licenses"`
	Categories  []COCOCategory   `json:"categories"`
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
}

// ToCOCO converts the intermediate representation to a COCO dataset.
//
// Category ids are the 1-based positions in categories. Image ids are assigned 1-based in the
// order of data. Annotation ids form a single 1-based counter across all images. A label that
// does not appear in categories is an error; no category is created implicitly.
func ToCOCO(data []AnnotatedFile, categories []string) (COCODataset, error) {
	dataset := COCODataset{
		Licenses:    []struct{}{},
		Categories:  make([]COCOCategory, len(categories)),
		Images:      make([]COCOImage, 0, len(data)),
		Annotations: make([]COCOAnnotation, 0, len(data)),
	}

	categoryIDs := make(map[string]int, len(categories))
	for i, name := range categories {
		dataset.Categories[i] = COCOCategory{ID: i + 1, Name: name, Supercategory: "none"}
		categoryIDs[name] = i + 1
	}

	annID := 1
	for i, fileData := range data {
		imgID := i + 1

		img, _, err := decodeImageConfig(fileData.FilePath)
		if err != nil {
			return COCODataset{},
					fmt.Errorf("failed to decode the image metadata of %q: %v", fileData.FilePath, err)
		}

		dataset.Images = append(dataset.Images, COCOImage{
			ID:           imgID,
			FileName:     filepath.Base(fileData.FilePath),
			Width:        img.Width,
			Height:       img.Height,
			DateCaptured: "2023-01-01",
			License:      0,
		})

		for _, a := range fileData.Annotations {
			categoryID, ok := categoryIDs[a.Label]
			if !ok {
				return COCODataset{}, fmt.Errorf("label %q in %q is not in the category list",
					a.Label, fileData.FilePath)
			}

			width := a.Width()
			height := a.Height()
			dataset.Annotations = append(dataset.Annotations, COCOAnnotation{
				ID:           annID,
				ImageID:      imgID,
				CategoryID:   categoryID,
				Bbox:         [4]float64{a.Coords[0], a.Coords[1], width, height},
				Area:         width * height,
				Iscrowd:      0,
				Segmentation: [][]float64{},
			})
			annID++
		}
	}

	return dataset, nil
}

// WriteCOCO serialises the dataset and writes it to outFile as a single JSON document.
//
// The file is only created once the dataset has been fully assembled, so a failed conversion
// never leaves a partial document behind.
func WriteCOCO(outFile string, dataset COCODataset) error {
	enc, err := json.Marshal(dataset)
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(outFile, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", outFile, err)
	}

	log.Printf("Wrote COCO annotations for %d images to %s", len(dataset.Images), outFile)
	return nil
}
