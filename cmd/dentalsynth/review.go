package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dentalai/dentalsynth/internal/config"
	"github.com/dentalai/dentalsynth/internal/utils"
	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/client"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/dataset"
	"github.com/dentalai/dentalsynth/pkg/llamacpp"
	"github.com/dentalai/dentalsynth/pkg/ollama"
	"github.com/dentalai/dentalsynth/pkg/processing"
	"github.com/dentalai/dentalsynth/pkg/review"
	"github.com/dentalai/dentalsynth/pkg/synth"
)

func runPreview(a *app, args []string) error {
	fs := a.newFlagSet("preview")
	imagePath := fs.String("image", "", "sample image")
	labelPath := fs.String("label", "", "label file (default: matching file under labels/)")
	out := fs.String("out", "", "overlay output path (default: <image>_boxes.png)")
	if err := parse(fs, args); err != nil {
		return err
	}
	img := firstArg(fs, *imagePath)
	if img == "" {
		fmt.Fprintln(fs.Output(), "preview: an image path is required")
		return errUsage
	}
	if *labelPath == "" {
		*labelPath = dataset.LabelPathFor(img)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(img), utils.Stem(img)+"_boxes.png")
	}

	names := dataset.ClassNames(dataset.RootFor(img))
	anns, err := annotation.ParseFile(*labelPath)
	if err != nil {
		return err
	}

	p := processing.NewProcessor()
	src, err := p.LoadImage(img)
	if err != nil {
		return err
	}

	boxes := make([]processing.OverlayBox, 0, len(anns))
	for _, ann := range anns {
		if ann.Class < 0 || ann.Class >= len(names) {
			return fmt.Errorf("%s: class %d outside the %d dataset classes", *labelPath, ann.Class, len(names))
		}
		c, _, err := conditions.Parse(names[ann.Class])
		if err != nil {
			return fmt.Errorf("%s: %w", *labelPath, err)
		}
		boxes = append(boxes, processing.OverlayBox{Box: ann.Box.ToBox(), Color: synth.ClassColor(c)})
		a.log.Debug("%s at %.3f,%.3f size %.3fx%.3f", c, ann.Box.CX, ann.Box.CY, ann.Box.W, ann.Box.H)
	}

	overlay := p.CreateAnnotationOverlay(src, boxes)
	format, err := processing.NormalizeFormat(utils.GetFileExtension(*out))
	if err != nil {
		return err
	}
	if err := p.SaveImage(overlay, *out, format, 92, false); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s (%d boxes)\n", *out, len(boxes))
	return nil
}

func runReview(a *app, args []string) error {
	rc := a.cfg.Review
	fs := a.newFlagSet("review")
	fs.StringVar(&rc.Backend, "backend", rc.Backend, "vision backend: ollama|llamacpp")
	fs.StringVar(&rc.Host, "url", rc.Host, "backend server URL")
	fs.StringVar(&rc.Model, "model", rc.Model, "vision model name")
	fs.Float64Var(&rc.IoUThreshold, "iou", rc.IoUThreshold, "IoU needed to pass")
	fs.IntVar(&rc.MaxImageDim, "sendsize", rc.MaxImageDim, "max long side sent to the model (px)")
	root := fs.String("data", a.cfg.Output.Dir, "dataset root")
	split := fs.String("split", dataset.SplitVal, "split to review")
	limit := fs.Int("limit", 10, "review at most this many samples, 0 for all")
	imagePath := fs.String("image", "", "review one image instead of a split")
	jsonOut := fs.Bool("json", false, "print outcomes as JSON")
	offline := fs.Bool("offline", false, "score label boxes by image saliency instead of asking a model")
	minContrast := fs.Float64("min-contrast", review.DefaultMinContrast, "saliency ratio a box needs in -offline mode")
	if err := parse(fs, args); err != nil {
		return err
	}

	images := []string{*imagePath}
	if *imagePath == "" {
		var err error
		images, err = utils.ListFiles(filepath.Join(*root, "images", *split), processing.ImageExtensions...)
		if err != nil {
			return err
		}
		if *limit > 0 && len(images) > *limit {
			images = images[:*limit]
		}
	}
	if len(images) == 0 {
		return fmt.Errorf("no images to review in %s", filepath.Join(*root, "images", *split))
	}

	if *offline {
		return a.reviewContrast(images, *minContrast, *jsonOut)
	}

	vc, err := newVisionClient(rc)
	if err != nil {
		return err
	}
	reviewer, err := review.New(vc, review.Options{
		Model:        rc.Model,
		IoUThreshold: rc.IoUThreshold,
		MaxImageDim:  rc.MaxImageDim,
		Names:        dataset.ClassNames(dataset.RootFor(images[0])),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var outcomes []*review.Outcome
	passed := 0
	for _, img := range images {
		o, err := reviewOne(ctx, reviewer, img, rc.Timeout)
		if err != nil {
			return err
		}
		if o.Aliased {
			a.log.Warning("model used an alias for %s", o.Predicted)
		}
		if o.Pass {
			passed++
		}
		outcomes = append(outcomes, o)
		if !*jsonOut {
			verdict := "FAIL"
			if o.Pass {
				verdict = "PASS"
			}
			fmt.Fprintf(a.stdout, "%s %s predicted=%s conf=%.2f truth=%v iou=%.2f\n",
				verdict, filepath.Base(img), o.Predicted, o.Confidence, o.Truth, o.BestIoU)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}
	fmt.Fprintf(a.stdout, "%d/%d samples passed (IoU >= %.2f)\n", passed, len(outcomes), rc.IoUThreshold)
	return nil
}

func (a *app) reviewContrast(images []string, minContrast float64, jsonOut bool) error {
	var outcomes []*review.ContrastOutcome
	passed := 0
	for _, img := range images {
		o, err := review.CheckContrast(img, dataset.LabelPathFor(img), minContrast)
		if err != nil {
			return err
		}
		if o.Pass {
			passed++
		}
		outcomes = append(outcomes, o)
		if !jsonOut {
			verdict := "FAIL"
			if o.Pass {
				verdict = "PASS"
			}
			fmt.Fprintf(a.stdout, "%s %s contrast=%.2f weak=%v\n", verdict, filepath.Base(img), o.Contrast, o.Weak)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}
	fmt.Fprintf(a.stdout, "%d/%d samples passed (contrast >= %.2f)\n", passed, len(outcomes), minContrast)
	return nil
}

// reviewOne bounds a single model call by timeout when it is positive.
func reviewOne(ctx context.Context, r *review.Reviewer, img string, timeout time.Duration) (*review.Outcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.Review(ctx, img, dataset.LabelPathFor(img))
}

func newVisionClient(rc config.ReviewConfig) (client.VisionClient, error) {
	switch rc.Backend {
	case client.BackendOllama:
		c, err := ollama.NewClient(rc.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case client.BackendLlamaCpp:
		host := rc.Host
		if host == config.Default().Review.Host {
			host = llamacpp.DefaultURL
		}
		c, err := llamacpp.NewClient(host)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use %s or %s)", rc.Backend, client.BackendOllama, client.BackendLlamaCpp)
	}
}
