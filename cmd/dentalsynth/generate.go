package main

import (
	"fmt"
	"strings"

	"github.com/dentalai/dentalsynth/pkg/catalog"
	"github.com/dentalai/dentalsynth/pkg/dataset"
	"github.com/dentalai/dentalsynth/pkg/synth"
)

// Progress is logged every trainEvery train samples and valEvery val samples.
const (
	trainEvery = 100
	valEvery   = 50
)

const smallDatasetWarning = 100

func runGenerate(a *app, args []string) error {
	cfg := a.cfg
	fs := a.newFlagSet("generate")

	var size int
	var classes, mode string
	fs.StringVar(&cfg.Output.Dir, "out", cfg.Output.Dir, "dataset root directory")
	fs.StringVar(&cfg.Output.Dir, "o", cfg.Output.Dir, "shorthand for -out")
	fs.IntVar(&cfg.Generator.Count, "count", cfg.Generator.Count, "number of images to generate")
	fs.IntVar(&cfg.Generator.Count, "c", cfg.Generator.Count, "shorthand for -count")
	fs.Float64Var(&cfg.Generator.TrainSplit, "train-split", cfg.Generator.TrainSplit, "fraction of images used for training (0.5-0.9)")
	fs.StringVar(&mode, "mode", string(cfg.Render.Style), "image style: single|multi")
	fs.IntVar(&size, "size", 0, "square image size in pixels (default from config)")
	fs.StringVar(&cfg.Output.Format, "ext", cfg.Output.Format, "image format: jpg|png|webp")
	fs.IntVar(&cfg.Output.Quality, "quality", cfg.Output.Quality, "JPEG/WebP quality (1-100)")
	fs.Int64Var(&cfg.Generator.Seed, "seed", cfg.Generator.Seed, "random seed")
	fs.IntVar(&cfg.Generator.MaxConditions, "max-conditions", cfg.Generator.MaxConditions, "most conditions per multi-style image")
	fs.StringVar(&classes, "classes", "", "comma separated class names (default: all)")
	fs.StringVar(&cfg.Output.Catalog, "catalog", cfg.Output.Catalog, "record samples in this SQLite database")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg.Render.Style = synth.Style(mode)
	if size > 0 {
		cfg.Render.Width, cfg.Render.Height = size, size
	}
	if classes != "" {
		cfg.Generator.Classes = strings.Split(classes, ",")
	}

	opts, aliased, err := cfg.DatasetOptions()
	if err != nil {
		return err
	}
	for _, alias := range aliased {
		a.log.Warning("class alias used: %s", alias)
	}
	if opts.Count < smallDatasetWarning {
		a.log.Warning("only %d images requested; at least %d are recommended for training", opts.Count, smallDatasetWarning)
	}

	asm, err := dataset.New(opts)
	if err != nil {
		return err
	}

	var cat *catalog.Catalog
	if cfg.Output.Catalog != "" {
		cat, err = catalog.Open(cfg.Output.Catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		asm.WithRecorder(cat)
	}

	asm.WithProgress(func(split string, done, total int) {
		every := trainEvery
		if split == dataset.SplitVal {
			every = valEvery
		}
		if done%every == 0 || done == total {
			a.log.Info("%s: %d/%d images", split, done, total)
		}
	})

	a.log.Info("generating %d %s-style images into %s (split %.2f, seed %d)",
		opts.Count, opts.Render.Style, opts.Root, opts.TrainSplit, opts.Seed)
	sum, err := asm.Run()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Dataset created at %s\n", sum.Root)
	fmt.Fprintf(a.stdout, "  train images: %d\n", sum.Train)
	fmt.Fprintf(a.stdout, "  val images:   %d\n", sum.Val)
	fmt.Fprintf(a.stdout, "  annotations:  %d\n", sum.Annotations)
	fmt.Fprintf(a.stdout, "  classes drawn: %s\n", strings.Join(opts.Classes.Names(), ", "))
	fmt.Fprintf(a.stdout, "  manifest:     %s\n", sum.Manifest)

	if cat != nil {
		removed, err := cat.Prune(map[string]int{dataset.SplitTrain: sum.Train, dataset.SplitVal: sum.Val})
		if err != nil {
			return err
		}
		if removed > 0 {
			a.log.Info("removed %d catalog entries from an earlier, larger run", removed)
		}
		dist, err := cat.ClassDistribution()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Class distribution:")
		for _, d := range dist {
			fmt.Fprintf(a.stdout, "  %-5s %-18s %d\n", d.Split, d.Class, d.Count)
		}
	}
	return nil
}
