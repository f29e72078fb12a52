package halconv

// The intermediate annotation metadata representation.

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
)

// Annotation is the intermediate representation of an object label.
type Annotation struct {
	Coords [4]float64 // Absolute x1, y1, x2, y2 offsets from the top-left corner.
	Label  string
}

// Width is the object width from a.Coords.
func (a Annotation) Width() float64 {
	return a.Coords[2] - a.Coords[0]
}

// Height is the object height from a.Coords.
func (a Annotation) Height() float64 {
	return a.Coords[3] - a.Coords[1]
}

// AnnotatedFile is the intermediate representation of file metadata.
type AnnotatedFile struct {
	Annotations []Annotation // The annotations.
	FilePath    string       // The annotated image file.
}

// scaleCoords scales all Annotations.Coords by the given scale factors.
func (f *AnnotatedFile) scaleCoords(width, height float64) {
	for i := range f.Annotations {
		for j := 0; j < 4; j++ {
			if j&1 == 0 {
				f.Annotations[i].Coords[j] *= width
			} else {
				f.Annotations[i].Coords[j] *= height
			}
		}
	}
}

// AnnotatedFiles is the annotation metadata for a list of files.
type AnnotatedFiles []AnnotatedFile

// MapLabels replaces label (sub-)strings with substitution values, as specified in mappings.
//
// The format of mappings is old=new.
func (data *AnnotatedFiles) MapLabels(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	replacements := make([]struct{ old, new string }, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 {
			return fmt.Errorf("invalid mapping: %v", v)
		}

		replacements[i].old = a[0]
		replacements[i].new = a[1]
	}

	// Apply the replacements, in order, to all labels.
	count := 0
	for _, f := range *data {
		for i := range f.Annotations {
			a := &f.Annotations[i]

			oldLabel := a.Label
			for _, r := range replacements {
				a.Label = strings.Replace(a.Label, r.old, r.new, -1)
			}

			if a.Label != oldLabel {
				count++
			}
		}
	}

	log.Printf("The label mappings changed %d labels", count)
	return nil
}

// Filter filters out annotations which do not match any of the given labelNames or have a bounding
// box with less than minBboxWidth or minBboxHeight. An empty labelNames keeps all labels.
//
// If requireLabel is true, files that are left with no annotations are removed from the dataset.
func (data *AnnotatedFiles) Filter(labelNames []string, minBboxWidth, minBboxHeight float64,
		requireLabel bool) {

	keepLabel := func(label string) bool {
		if len(labelNames) == 0 {
			return true
		}
		for _, v := range labelNames {
			if v == label {
				return true
			}
		}
		return false
	}

	numFiles := len(*data)
	numLabelsBefore := 0
	numLabelsAfter := 0

	for dataIdx, dataLen := 0, len(*data); dataIdx < dataLen; dataIdx++ {
		d := &(*data)[dataIdx]
		numLabelsBefore += len(d.Annotations)

		kept := d.Annotations[:0]
		for _, a := range d.Annotations {
			if a.Width() < minBboxWidth || a.Height() < minBboxHeight || !keepLabel(a.Label) {
				continue
			}
			kept = append(kept, a)
		}
		d.Annotations = kept

		numLabelsAfter += len(d.Annotations)

		// Delete the file annotation if files with no labels are filtered out.
		if requireLabel && len(d.Annotations) == 0 {
			dataLen--
			(*data)[dataIdx] = (*data)[dataLen]
			*data = (*data)[0:dataLen]
			dataIdx--
		}
	}

	log.Printf("Filtered out %d labels and %d files",
		numLabelsBefore-numLabelsAfter, numFiles-len(*data))
}

// ProcessImages resizes all referenced images to match longerSide and shorterSide (one may be
// zero to preserve the aspect ratio) and writes them to imageOutDir using the specified encoding.
// Bounding box coordinates are rescaled accordingly and the file paths are updated to point at
// the processed images.
//
// A longerSide and shorterSide of zero make this a no-op.
func (data *AnnotatedFiles) ProcessImages(imageOutDir string, longerSide, shorterSide int,
		downsamplingFilter, upsamplingFilter, encoding string, jpegQuality int) error {

	if longerSide <= 0 && shorterSide <= 0 {
		return nil
	}
	log.Printf("Processing %d images", len(*data))

	downsample, err := resampleFilterByName(downsamplingFilter)
	if err != nil {
		return err
	}
	upsample, err := resampleFilterByName(upsamplingFilter)
	if err != nil {
		return err
	}

	// Select the output file extension based on the requested encoding.
	var fileExt string
	switch strings.ToLower(encoding) {
	case "jpg", "jpeg":
		fileExt = ".jpg"
	case "png":
		fileExt = ".png"
	default:
		return fmt.Errorf("unsupported output encoding %q", encoding)
	}

	for i := range *data {
		d := &(*data)[i]

		img, _, err := loadImage(d.FilePath)
		if err != nil {
			return err
		}

		resized, scaleWidth, scaleHeight, err :=
				resizeImage(img, longerSide, shorterSide, downsample, upsample)
		if err != nil {
			return err
		}

		_, baseNoExt, _, err := splitPath(d.FilePath)
		if err != nil {
			return err
		}
		outPath := filepath.Join(imageOutDir, baseNoExt+fileExt)
		if err := saveImage(outPath, resized, jpegQuality); err != nil {
			return err
		}

		d.FilePath = outPath
		d.scaleCoords(scaleWidth, scaleHeight)
	}

	return nil
}
