package halconv

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func TestToCOCO(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	imgPath := filepath.Join(dir, "a.jpg")
	writeTestImage(t, imgPath, 100, 50)

	data := []AnnotatedFile{{
		Annotations: []Annotation{{Coords: [4]float64{10, 10, 60, 40}, Label: "cat"}},
		FilePath:    imgPath,
	}}

	dataset, err := ToCOCO(data, []string{"cat", "dog"})
	if err != nil {
		t.Fatal(err)
	}

	wantCategories := []COCOCategory{
		{ID: 1, Name: "cat", Supercategory: "none"},
		{ID: 2, Name: "dog", Supercategory: "none"},
	}
	if len(dataset.Categories) != len(wantCategories) {
		t.Fatalf("got %d categories, want %d", len(dataset.Categories), len(wantCategories))
	}
	for i, c := range dataset.Categories {
		if c != wantCategories[i] {
			t.Errorf("category %d: got %+v, want %+v", i, c, wantCategories[i])
		}
	}

	if len(dataset.Images) != 1 {
		t.Fatalf("got %d images, want 1", len(dataset.Images))
	}
	img := dataset.Images[0]
	if img.ID != 1 || img.FileName != "a.jpg" || img.Width != 100 || img.Height != 50 {
		t.Errorf("unexpected image entry: %+v", img)
	}

	if len(dataset.Annotations) != 1 {
		t.Fatalf("got %d annotations, want 1", len(dataset.Annotations))
	}
	a := dataset.Annotations[0]
	if a.ID != 1 || a.ImageID != 1 || a.CategoryID != 1 {
		t.Errorf("unexpected annotation ids: %+v", a)
	}
	if a.Bbox != [4]float64{10, 10, 50, 30} {
		t.Errorf("got bbox %v, want [10 10 50 30]", a.Bbox)
	}
	if a.Area != 1500 {
		t.Errorf("got area %v, want 1500", a.Area)
	}
	if a.Iscrowd != 0 || len(a.Segmentation) != 0 {
		t.Errorf("unexpected iscrowd/segmentation: %+v", a)
	}
}

func TestToCOCOAnnotationIDsAcrossImages(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	writeTestImage(t, pathA, 20, 20)
	writeTestImage(t, pathB, 20, 20)

	box := Annotation{Coords: [4]float64{1, 2, 3, 4}, Label: "cat"}
	data := []AnnotatedFile{
		{Annotations: []Annotation{box, box}, FilePath: pathA},
		{Annotations: []Annotation{box}, FilePath: pathB},
	}

	dataset, err := ToCOCO(data, []string{"cat"})
	if err != nil {
		t.Fatal(err)
	}

	if len(dataset.Annotations) != 3 {
		t.Fatalf("got %d annotations, want 3", len(dataset.Annotations))
	}
	wantImageIDs := []int{1, 1, 2}
	for i, a := range dataset.Annotations {
		if a.ID != i+1 {
			t.Errorf("annotation %d: got id %d, want %d", i, a.ID, i+1)
		}
		if a.ImageID != wantImageIDs[i] {
			t.Errorf("annotation %d: got image_id %d, want %d", i, a.ImageID, wantImageIDs[i])
		}
	}
}

func TestToCOCOUnknownCategory(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	imgPath := filepath.Join(dir, "a.png")
	writeTestImage(t, imgPath, 10, 10)

	data := []AnnotatedFile{{
		Annotations: []Annotation{{Coords: [4]float64{0, 0, 5, 5}, Label: "bird"}},
		FilePath:    imgPath,
	}}

	_, err := ToCOCO(data, []string{"cat", "dog"})
	if err == nil {
		t.Fatal("expected an error for an unknown category")
	}
	if !strings.Contains(err.Error(), "bird") {
		t.Errorf("error should name the unknown label: %v", err)
	}
}

func TestToCOCOImageReadError(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	// A file with an image extension but no decodable content.
	imgPath := filepath.Join(dir, "a.png")
	writeTestFile(t, imgPath, "not an image")

	data := []AnnotatedFile{{FilePath: imgPath}}
	if _, err := ToCOCO(data, nil); err == nil {
		t.Fatal("expected an error for an undecodable image")
	}
}

func TestWriteCOCO(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	imgPath := filepath.Join(dir, "a.jpg")
	writeTestImage(t, imgPath, 100, 50)

	data := []AnnotatedFile{{
		Annotations: []Annotation{{Coords: [4]float64{10, 10, 60, 40}, Label: "cat"}},
		FilePath:    imgPath,
	}}
	dataset, err := ToCOCO(data, []string{"cat"})
	if err != nil {
		t.Fatal(err)
	}

	outFile := filepath.Join(dir, "coco.json")
	if err := WriteCOCO(outFile, dataset); err != nil {
		t.Fatal(err)
	}

	enc, err := ioutil.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}

	// The top-level tables must all be present, including the empty info and licenses.
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(enc, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"info", "licenses", "categories", "images", "annotations"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
	if string(doc["info"]) != "{}" {
		t.Errorf("got info %s, want {}", doc["info"])
	}
	if string(doc["licenses"]) != "[]" {
		t.Errorf("got licenses %s, want []", doc["licenses"])
	}

	var decoded COCODataset
	if err := json.Unmarshal(enc, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Images) != 1 || len(decoded.Annotations) != 1 {
		t.Errorf("round trip lost entries: %d images, %d annotations",
			len(decoded.Images), len(decoded.Annotations))
	}
	if decoded.Annotations[0].Bbox != dataset.Annotations[0].Bbox {
		t.Errorf("bbox changed in round trip: got %v, want %v",
			decoded.Annotations[0].Bbox, dataset.Annotations[0].Bbox)
	}
}
