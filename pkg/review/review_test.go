package review

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalai/dentalsynth/pkg/modeljson"
	"github.com/dentalai/dentalsynth/pkg/types"
)

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return f.reply, f.err
}

func (f *fakeClient) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return modeljson.ParseAnalysis(f.reply), nil
}

// writeSample writes a flat image and a label with one cavity at (0.5,0.5) sized 0.4x0.4.
func writeSample(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	img := imaging.New(64, 64, color.NRGBA{255, 220, 200, 255})
	imgPath := filepath.Join(dir, "train_0000.png")
	require.NoError(t, imaging.Save(img, imgPath))
	labelPath := filepath.Join(dir, "train_0000.txt")
	require.NoError(t, os.WriteFile(labelPath, []byte("0 0.500000 0.500000 0.400000 0.400000\n"), 0o644))
	return imgPath, labelPath
}

func TestReview(t *testing.T) {
	imgPath, labelPath := writeSample(t)

	tests := []struct {
		name  string
		reply string
		match bool
		pass  bool
		iou   float64
	}{
		{
			name:  "exact",
			reply: `{"primary":{"label":"cavity","confidence":0.9,"box":{"x":0.3,"y":0.3,"w":0.4,"h":0.4}}}`,
			match: true, pass: true, iou: 1,
		},
		{
			name:  "wrong label",
			reply: `{"primary":{"label":"plaque","confidence":0.9,"box":{"x":0.3,"y":0.3,"w":0.4,"h":0.4}}}`,
			match: false, pass: false, iou: 1,
		},
		{
			// intersection 0.04, union 0.28
			name:  "low overlap",
			reply: `{"primary":{"label":"cavity","confidence":0.5,"box":{"x":0.5,"y":0.5,"w":0.4,"h":0.4}}}`,
			match: true, pass: false, iou: 0.04 / 0.28,
		},
		{
			name:  "none",
			reply: `{"primary":{"label":"none","confidence":0,"box":{"x":0,"y":0,"w":0,"h":0}}}`,
			match: false, pass: false, iou: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{reply: tt.reply}
			r, err := New(fc, Options{Model: "llava"})
			require.NoError(t, err)

			out, err := r.Review(context.Background(), imgPath, labelPath)
			require.NoError(t, err)
			assert.Equal(t, 1, fc.calls)
			assert.Equal(t, []string{"cavity"}, out.Truth)
			assert.Equal(t, tt.match, out.LabelMatch)
			assert.Equal(t, tt.pass, out.Pass)
			assert.InDelta(t, tt.iou, out.BestIoU, 1e-6)
		})
	}
}

func TestReviewErrors(t *testing.T) {
	imgPath, labelPath := writeSample(t)

	_, err := New(&fakeClient{}, Options{})
	assert.Error(t, err, "model is required")

	_, err = New(&fakeClient{}, Options{Model: "m", IoUThreshold: 1.5})
	assert.Error(t, err)

	r, err := New(&fakeClient{err: errors.New("offline")}, Options{Model: "m"})
	require.NoError(t, err)
	_, err = r.Review(context.Background(), imgPath, labelPath)
	assert.ErrorContains(t, err, "offline")

	_, err = r.Review(context.Background(), imgPath, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestReviewUsesDatasetNames(t *testing.T) {
	imgPath, labelPath := writeSample(t)
	reply := `{"primary":{"label":"plaque","confidence":0.8,"box":{"x":0.3,"y":0.3,"w":0.4,"h":0.4}}}`

	// A dataset whose class 0 is plaque, as an older manifest might say.
	r, err := New(&fakeClient{reply: reply}, Options{Model: "m", Names: []string{"plaque", "cavity"}})
	require.NoError(t, err)
	out, err := r.Review(context.Background(), imgPath, labelPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"plaque"}, out.Truth)
	assert.True(t, out.Pass)

	r, err = New(&fakeClient{reply: reply}, Options{Model: "m"})
	require.NoError(t, err)
	out, err = r.Review(context.Background(), imgPath, labelPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"cavity"}, out.Truth)
	assert.False(t, out.LabelMatch)
}

func TestCheckContrast(t *testing.T) {
	dir := t.TempDir()
	img := imaging.New(100, 100, color.NRGBA{40, 40, 40, 255})
	img = imaging.Paste(img, imaging.New(30, 30, color.NRGBA{255, 255, 255, 255}), image.Pt(35, 35))
	imgPath := filepath.Join(dir, "s.png")
	require.NoError(t, imaging.Save(img, imgPath))

	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("0 0.500000 0.500000 0.300000 0.300000\n"), 0o644))
	out, err := CheckContrast(imgPath, good, DefaultMinContrast)
	require.NoError(t, err)
	assert.True(t, out.Pass)
	require.Len(t, out.Contrast, 1)
	assert.Greater(t, out.Contrast[0], 1.5)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("0 0.500000 0.500000 0.300000 0.300000\n1 0.150000 0.150000 0.200000 0.200000\n"), 0o644))
	out, err = CheckContrast(imgPath, bad, DefaultMinContrast)
	require.NoError(t, err)
	assert.False(t, out.Pass)
	assert.Equal(t, []int{1}, out.Weak)
}
