package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dentalai/dentalsynth/internal/utils"
	"github.com/dentalai/dentalsynth/pkg/dataset"
	"github.com/dentalai/dentalsynth/pkg/modelpkg"
	"github.com/dentalai/dentalsynth/pkg/pipeline"
)

func runTrain(a *app, args []string) error {
	cfg := a.cfg.Train
	if cfg.Data == "" {
		cfg.Data = filepath.Join(a.cfg.Output.Dir, dataset.ManifestName)
	}

	fs := a.newFlagSet("train")
	fs.StringVar(&cfg.Data, "data", cfg.Data, "dataset manifest (dataset.yaml)")
	fs.StringVar(&cfg.Output, "out", cfg.Output, "where to copy the best weights")
	fs.IntVar(&cfg.Epochs, "epochs", cfg.Epochs, "training epochs")
	fs.StringVar(&cfg.ModelSize, "model-size", cfg.ModelSize, "model size: n|s|m|l|x")
	fs.IntVar(&cfg.ImgSize, "imgsz", cfg.ImgSize, "input image size (multiple of 32)")
	fs.IntVar(&cfg.Batch, "batch", cfg.Batch, "batch size")
	fs.StringVar(&cfg.Device, "device", cfg.Device, "device: cpu, mps or a CUDA index")
	fs.BoolVar(&cfg.Pretrained, "pretrained", cfg.Pretrained, "start from pretrained weights")
	fs.StringVar(&cfg.Project, "project", cfg.Project, "training project directory")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "training run name")
	binary := fs.String("yolo", pipeline.DefaultBinary, "YOLO command line tool")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a.log.Info("training %s for %d epochs on %s", cfg.BaseModel(), cfg.Epochs, cfg.Data)
	p := pipeline.New(pipeline.ExecRunner{Stream: os.Stderr}).WithBinary(*binary)
	res, err := p.Train(ctx, cfg)
	if err != nil {
		return err
	}
	return a.report(res)
}

func runExport(a *app, args []string) error {
	cfg := a.cfg.Export
	if cfg.Input == "" {
		cfg.Input = a.cfg.Train.Output
	}

	fs := a.newFlagSet("export")
	fs.StringVar(&cfg.Input, "in", cfg.Input, "trained .pt weights")
	fs.StringVar(&cfg.Output, "out", cfg.Output, "exported model path")
	fs.IntVar(&cfg.ImgSize, "imgsz", cfg.ImgSize, "input image size (multiple of 32)")
	fs.Float64Var(&cfg.Conf, "conf", cfg.Conf, "confidence threshold")
	fs.Float64Var(&cfg.IoU, "iou", cfg.IoU, "NMS IoU threshold")
	fs.BoolVar(&cfg.Quantize, "quantize", cfg.Quantize, "int8 quantization")
	fs.BoolVar(&cfg.NMS, "nms", cfg.NMS, "embed non-maximum suppression")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "export format: coreml|onnx")
	binary := fs.String("yolo", pipeline.DefaultBinary, "YOLO command line tool")
	if err := parse(fs, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a.log.Info("exporting %s to %s (%s)", cfg.Input, cfg.Output, cfg.Format)
	p := pipeline.New(pipeline.ExecRunner{Stream: os.Stderr}).WithBinary(*binary)
	res, err := p.Export(ctx, cfg)
	if err != nil {
		return err
	}
	return a.report(res)
}

// report prints a pipeline result and turns a failed run into an error.
func (a *app) report(res pipeline.Result) error {
	if !res.OK {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Fprintln(a.stdout, res.Message)
	if res.Artifact != "" {
		fmt.Fprintf(a.stdout, "Artifact: %s\n", res.Artifact)
	}
	return nil
}

func runPlaceholder(a *app, args []string) error {
	opts := modelpkg.DefaultPlaceholderOptions()
	opts.ImgSize = a.cfg.Export.ImgSize
	opts.Confidence = a.cfg.Export.Conf
	opts.IoUThreshold = a.cfg.Export.IoU

	fs := a.newFlagSet("placeholder")
	out := fs.String("out", modelpkg.DefaultPlaceholderName, "package path (.mlpackage)")
	fs.StringVar(out, "o", *out, "shorthand for -out")
	fs.IntVar(&opts.ImgSize, "imgsz", opts.ImgSize, "declared input size")
	fs.Float64Var(&opts.Confidence, "conf", opts.Confidence, "declared confidence threshold")
	fs.Float64Var(&opts.IoUThreshold, "iou", opts.IoUThreshold, "declared IoU threshold")
	if err := parse(fs, args); err != nil {
		return err
	}

	size, err := modelpkg.WritePlaceholder(*out, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Placeholder model written to %s (%s)\n", *out, utils.FormatFileSize(size))
	return nil
}

func runInspect(a *app, args []string) error {
	fs := a.newFlagSet("inspect")
	path := fs.String("model", "", "ONNX model path")
	if err := parse(fs, args); err != nil {
		return err
	}
	model := firstArg(fs, *path)
	if model == "" {
		fmt.Fprintln(fs.Output(), "inspect: a model path is required")
		return errUsage
	}

	r, err := modelpkg.InspectONNX(model)
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(r); encErr != nil {
		return encErr
	}
	return err
}
