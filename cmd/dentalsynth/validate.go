package main

import (
	"fmt"

	"github.com/dentalai/dentalsynth/pkg/analyzer"
	"github.com/dentalai/dentalsynth/pkg/dataset"
)

func runValidate(a *app, args []string) error {
	fs := a.newFlagSet("validate")
	root := fs.String("data", a.cfg.Output.Dir, "dataset root directory")
	checkImages := fs.Bool("check-images", false, "decode every image header")
	fix := fs.Bool("fix-manifest", false, "write "+dataset.ManifestName+" when it is missing")
	if err := parse(fs, args); err != nil {
		return err
	}
	dir := firstArg(fs, *root)

	if *fix {
		path, created, err := dataset.EnsureManifest(dir)
		if err != nil {
			return err
		}
		if created {
			a.log.Info("wrote %s", path)
		}
	}

	opts := dataset.ValidateOptions{Limits: a.cfg.Annotation}
	if *checkImages {
		opts.Images = analyzer.New()
	}
	r, err := dataset.Validate(dir, opts)
	if err != nil {
		return err
	}

	for _, w := range r.Warnings {
		a.log.Warning("%s", w)
	}
	fmt.Fprintf(a.stdout, "Dataset %s is valid\n", r.Root)
	fmt.Fprintf(a.stdout, "  train: %d images, %d labels, %d annotations\n", r.Train.Images, r.Train.Labels, r.Train.Annotations)
	fmt.Fprintf(a.stdout, "  val:   %d images, %d labels, %d annotations\n", r.Val.Images, r.Val.Labels, r.Val.Annotations)
	fmt.Fprintf(a.stdout, "  classes (%d): %v\n", r.Manifest.NC, r.Manifest.Names)
	return nil
}
