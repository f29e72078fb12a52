package halconv

// TFRecord object detection specific functionality.

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// toTFRecord converts the intermediate representation for a single file to a TFRecord feature
// map. Class ids are looked up in categoryIDs; an unknown label is an error.
func toTFRecord(fileData AnnotatedFile, categoryIDs map[string]int) (TFFeatureMap, error) {
	// Get the image width and height.
	img, format, err := decodeImageConfig(fileData.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata of %q: %v", fileData.FilePath, err)
	}

	// Read the image data.
	imgData, err := readFile(fileData.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image %q: %v", fileData.FilePath, err)
	}

	// Prepare the feature map for the per file data.
	f := make(TFFeatureMap, 16)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = fileData.FilePath
	f["image/source_id"] = fileData.FilePath
	f["image/encoded"] = imgData
	f["image/format"] = format

	// Prepare the per label data.
	numLabels := len(fileData.Annotations)
	xmins := make([]float32, numLabels)
	ymins := make([]float32, numLabels)
	xmaxs := make([]float32, numLabels)
	ymaxs := make([]float32, numLabels)
	classes := make([]string, numLabels)
	classIDs := make([]int64, numLabels)
	for i, a := range fileData.Annotations {
		xmins[i] = float32(a.Coords[0]) / float32(img.Width)
		ymins[i] = float32(a.Coords[1]) / float32(img.Height)
		xmaxs[i] = float32(a.Coords[2]) / float32(img.Width)
		ymaxs[i] = float32(a.Coords[3]) / float32(img.Height)
		classes[i] = a.Label

		id, ok := categoryIDs[a.Label]
		if !ok {
			return nil, fmt.Errorf("label %q in %q is not in the category list",
				a.Label, fileData.FilePath)
		}
		classIDs[i] = int64(id)
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write for the annotation data
// to one or more TFRecord files stored under recordFilePath (with suffixes added when
// numShards > 1).
//
// The label map is fixed by the ordered categories list (id = 1-based position) and is written to
// labelMapPath in prototxt form. A label outside the list aborts the conversion.
func WriteTFRecord(recordFilePath, labelMapPath string, data []AnnotatedFile,
		categories []string, numShards int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	categoryIDs := make(map[string]int, len(categories))
	for i, name := range categories {
		categoryIDs[name] = i + 1
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			_ = shardFile.Close()
		}
	}()

	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))

	// Convert and serialise one data element at a time.
	shardIdx := -1
	for i, fileData := range data {
		// Check if a new shard file needs to be opened for writing.
		if shardSize > 0 && i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return err
				}
				shardFile = nil
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFRecord(fileData, categoryIDs)
		if err != nil {
			return err
		}

		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return fmt.Errorf("failed to write example for %q: %v", fileData.FilePath, err)
		}
	}

	if shardFile != nil {
		if err := shardFile.Close(); err != nil {
			return err
		}
		shardFile = nil
	}

	log.Printf("Wrote TFRecords for %d files to %s", len(data), recordFilePath)
	return saveTFRecordLabelMap(labelMapPath, categories)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes the ordered categories as a prototxt label map to path, with ids
// matching the 1-based list positions used by the converters.
func saveTFRecordLabelMap(path string, categories []string) error {
	var buf bytes.Buffer
	for i, name := range categories {
		fmt.Fprintf(&buf, "item {\n  id: %d\n  name: %q\n}\n", i+1, name)
	}

	if err := ioutil.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write the label map file %q: %v", path, err)
	}

	return nil
}
