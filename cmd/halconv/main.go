// Converts Halcon style object detection annotations to the Pascal VOC, COCO and TFRecord
// dataset formats.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensorable/halconv"
)

var (
	convertTo format // The target format.

	imageDirPath             string // The input directory with the labeled images.
	imageOutDirPath          string // The output directory for images after processing.
	annotationDirPath        string // The input directory with the Halcon annotation files.
	outPath                  string // The output directory (voc) or file (coco, tfrecord).
	tfRecordLabelMapFilePath string // The TFRecord label map file.
	numShardFiles            int    // The number of shard files to create.

	classNames    []string // The ordered category names.
	labelMappings string   // A comma-separated string of label mappings.

	filterLabels        string  // A comma-separated string of labels to keep (empty keeps all).
	filterRequireLabel  bool    // Filter out files with no labels (after other filters).
	filterMinBboxWidth  float64 // The minimum bounding box width.
	filterMinBboxHeight float64 // The minimum bounding box height.

	imageOutEncoding        string // The file type for image outputs.
	imageResizeLonger       int    // The target length for the longer side of the image.
	imageResizeShorter      int    // The target length for the shorter side of the image.
	imageDownsamplingFilter string // The algorithm to use when downsampling.
	imageUpsamplingFilter   string // The algorithm to use when upsampling.
	imageJPEGQuality        int    // The JPEG quality for JPEG outputs.
)

type format int

// The known target formats.
const (
	Unknown format = iota // If an unknown format is specified.
	COCO
	TFRecord
	VOC
)

func formatFrom(s string) format {
	switch s {
	case "coco":
		return COCO
	case "tfrecord":
		return TFRecord
	case "voc":
		return VOC
	}
	return Unknown
}

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  voc output options:\t\t-out <dir>")
		_, _ = fmt.Fprintln(os.Stderr, "  coco output options:\t\t-out <file> -classes <name[,...]>")
		_, _ = fmt.Fprintln(os.Stderr, "  tfrecord output options:\t-out <file> -classes <name[,...]>"+
				" -tfrecord-label-map-file [-num-shards]")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Format argument.
	to := flag.String("to", "", "The target `format` {voc, coco, tfrecord}")

	// Path arguments.
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The `path` to the image input directory")
	flag.StringVar(&imageOutDirPath, "images-out", imageOutDirPath,
		"The `path` to the image output directory (only required when image processing"+
				" functionality is used)")
	flag.StringVar(&annotationDirPath, "annotations", annotationDirPath,
		"The `path` to the Halcon annotation input directory")
	flag.StringVar(&outPath, "out", outPath,
		"The output `path`: a dataset directory (voc) or a label file (coco, tfrecord)")
	flag.StringVar(&tfRecordLabelMapFilePath, "tfrecord-label-map-file", tfRecordLabelMapFilePath,
		"The TFRecord label map file `path`")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of shard files to create (tfrecord only)")

	// Category and label arguments.
	classes := flag.String("classes", "",
		"The ordered comma-separated category names (`name[,...]`); ids are the 1-based positions")
	flag.StringVar(&labelMappings, "map-labels", labelMappings,
		"Comma-separated list of old=new label (sub-)string replacements")

	// Filter arguments.
	flag.StringVar(&filterLabels, "filter-labels", filterLabels,
		"Comma-separated list of labels to keep (after map-labels; empty string keeps all)")
	flag.BoolVar(&filterRequireLabel, "require-label", filterRequireLabel,
		"Require at least one label (after filters) to keep the file")
	flag.Float64Var(&filterMinBboxWidth, "min-bbox-width", filterMinBboxWidth,
		"The min. required width in `pixels` for object bounding boxes (before resizing)")
	flag.Float64Var(&filterMinBboxHeight, "min-bbox-height", filterMinBboxHeight,
		"The min. required height in `pixels` for object bounding boxes (before resizing)")

	// Image processing arguments.
	flag.StringVar(&imageOutEncoding, "image-enc", "jpg",
		"The `encoding` for output images {jpg, png}")
	flag.IntVar(&imageResizeLonger, "resize-longer", imageResizeLonger,
		"The target `length` for the longer side of the image (zero to keep aspect ratio)")
	flag.IntVar(&imageResizeShorter, "resize-shorter", imageResizeShorter,
		"The target `length` for the shorter side of the image (zero to keep aspect ratio)")
	flag.StringVar(&imageDownsamplingFilter, "downsample-filter", "box",
		"The filter to use when downsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageUpsamplingFilter, "upsample-filter", "linear",
		"The filter to use when upsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	// Parse and validate flags.
	flag.Parse()

	convertTo = formatFrom(*to)
	if convertTo == Unknown {
		printUsageAndExit("Unsupported output format")
	}

	// Validate input arguments.
	if imageDirPath == "" || annotationDirPath == "" {
		printUsageAndExit("Missing image or annotation input path argument")
	}
	if outPath == "" {
		printUsageAndExit("Missing output path argument")
	}

	// Validate category arguments.
	if *classes != "" {
		classNames = strings.Split(*classes, ",")
	}
	if (convertTo == COCO || convertTo == TFRecord) && len(classNames) == 0 {
		printUsageAndExit("Missing category names argument")
	}

	// Validate other output arguments.
	if convertTo == TFRecord && tfRecordLabelMapFilePath == "" {
		printUsageAndExit("Missing label map output path argument")
	}

	// Image processing arguments.
	if (imageResizeLonger > 0 || imageResizeShorter > 0) && imageOutDirPath == "" {
		printUsageAndExit("Missing image output directory path")
	}
	if imageJPEGQuality < 1 || imageJPEGQuality > 100 {
		imageJPEGQuality = 92
		log.Print("Invalid JPEG quality, setting it to ", imageJPEGQuality)
	}

	// Clean path arguments.
	imageDirPath = filepath.Clean(imageDirPath)
	annotationDirPath = filepath.Clean(annotationDirPath)
	outPath = filepath.Clean(outPath)
	if imageOutDirPath != "" {
		imageOutDirPath = filepath.Clean(imageOutDirPath)
		if imageDirPath == imageOutDirPath {
			printUsageAndExit("The image input and output paths cannot be identical")
		}
	}
	if tfRecordLabelMapFilePath != "" {
		tfRecordLabelMapFilePath = filepath.Clean(tfRecordLabelMapFilePath)
	}
}

func main() {
	// Parse input.
	data, err := halconv.FromHalcon(annotationDirPath, imageDirPath)
	if err != nil {
		log.Fatal("Failed to parse the input: ", err)
	}

	af := halconv.AnnotatedFiles(data)

	// Map labels.
	if len(labelMappings) > 0 {
		if err := af.MapLabels(strings.Split(labelMappings, ",")); err != nil {
			log.Fatal("Failed to map labels: ", err)
		}
	}

	// Apply filters.
	var labelNames []string
	if filterLabels != "" {
		labelNames = strings.Split(filterLabels, ",")
	}
	if labelNames != nil || filterMinBboxWidth > 0 || filterMinBboxHeight > 0 || filterRequireLabel {
		af.Filter(labelNames, filterMinBboxWidth, filterMinBboxHeight, filterRequireLabel)
	}

	// Process images.
	err = af.ProcessImages(imageOutDirPath, imageResizeLonger, imageResizeShorter,
		imageDownsamplingFilter, imageUpsamplingFilter, imageOutEncoding, imageJPEGQuality)
	if err != nil {
		log.Fatal("Image processing failed: ", err)
	}

	// Write the output dataset.
	switch convertTo {
	case COCO:
		var dataset halconv.COCODataset
		dataset, err = halconv.ToCOCO(af, classNames)
		if err == nil {
			err = halconv.WriteCOCO(outPath, dataset)
		}
	case TFRecord:
		err = halconv.WriteTFRecord(outPath, tfRecordLabelMapFilePath, af, classNames, numShardFiles)
	case VOC:
		err = halconv.WriteVOC(outPath, af, classNames)
	}
	if err != nil {
		log.Fatal("Conversion failed: ", err)
	}

	log.Print("Total number of labelled files: ", len(af))
}
