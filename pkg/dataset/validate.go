package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/dentalai/dentalsynth/internal/utils"
	"github.com/dentalai/dentalsynth/pkg/analyzer"
	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/processing"
)

// SplitStats counts the files of one split.
type SplitStats struct {
	Images      int `json:"images"`
	Labels      int `json:"labels"`
	Annotations int `json:"annotations"`
}

// Report is the outcome of Validate.
type Report struct {
	Root     string     `json:"root"`
	Train    SplitStats `json:"train"`
	Val      SplitStats `json:"val"`
	Manifest *Manifest  `json:"manifest"`
	Warnings []string   `json:"warnings,omitempty"`
}

// ValidateOptions tunes Validate.
type ValidateOptions struct {
	Limits annotation.Limits // zero value means annotation.DefaultLimits
	// Images, when set, inspects every image header.
	Images *analyzer.ImageAnalyzer
}

// Validate checks the dataset layout at root and every label line in it.
// Image and label count mismatches are warnings; everything else is an error.
func Validate(root string, opts ValidateOptions) (*Report, error) {
	if !utils.DirExists(root) {
		return nil, fmt.Errorf("dataset path does not exist: %s", root)
	}
	for _, dir := range []string{
		"images",
		"labels",
		filepath.Join("images", SplitTrain),
		filepath.Join("labels", SplitTrain),
	} {
		if !utils.DirExists(filepath.Join(root, dir)) {
			return nil, fmt.Errorf("directory not found: %s", filepath.Join(root, dir))
		}
	}
	if !utils.FileExists(filepath.Join(root, ManifestName)) {
		return nil, fmt.Errorf("%s not found in %s", ManifestName, root)
	}
	m, err := ReadManifest(root)
	if err != nil {
		return nil, err
	}

	if opts.Limits == (annotation.Limits{}) {
		opts.Limits = annotation.DefaultLimits()
	}

	r := &Report{Root: root, Manifest: m}
	if r.Train, err = r.checkSplit(root, SplitTrain, m.NC, opts); err != nil {
		return nil, err
	}
	if r.Train.Images == 0 {
		return nil, fmt.Errorf("no training images found in %s", filepath.Join(root, "images", SplitTrain))
	}
	if r.Train.Labels == 0 {
		return nil, fmt.Errorf("no training labels found in %s", filepath.Join(root, "labels", SplitTrain))
	}

	if utils.DirExists(filepath.Join(root, "images", SplitVal)) {
		if r.Val, err = r.checkSplit(root, SplitVal, m.NC, opts); err != nil {
			return nil, err
		}
	} else {
		r.Warnings = append(r.Warnings, "no validation split; training images are used for validation")
	}
	return r, nil
}

func (r *Report) checkSplit(root, split string, nc int, opts ValidateOptions) (SplitStats, error) {
	var st SplitStats
	images, err := utils.ListFiles(filepath.Join(root, "images", split), processing.ImageExtensions...)
	if err != nil {
		return st, fmt.Errorf("failed to list %s images: %w", split, err)
	}
	labelDir := filepath.Join(root, "labels", split)
	var labels []string
	if utils.DirExists(labelDir) {
		if labels, err = utils.ListFiles(labelDir, ".txt"); err != nil {
			return st, fmt.Errorf("failed to list %s labels: %w", split, err)
		}
	}
	st.Images, st.Labels = len(images), len(labels)

	if st.Images != st.Labels {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s: mismatch between images (%d) and labels (%d)", split, st.Images, st.Labels))
	}

	for _, path := range labels {
		anns, err := annotation.ParseFile(path)
		if err != nil {
			return st, err
		}
		for i, a := range anns {
			if err := a.Check(nc, opts.Limits); err != nil {
				return st, fmt.Errorf("%s: annotation %d: %w", path, i+1, err)
			}
		}
		st.Annotations += len(anns)
	}

	if opts.Images != nil {
		for _, path := range images {
			if _, err := opts.Images.CheckFile(path); err != nil {
				return st, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return st, nil
}
