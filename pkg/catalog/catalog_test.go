package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalai/dentalsynth/pkg/annotation"
	"github.com/dentalai/dentalsynth/pkg/conditions"
	"github.com/dentalai/dentalsynth/pkg/dataset"
	"github.com/dentalai/dentalsynth/pkg/types"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sample(split string, index int, classes ...conditions.Class) dataset.Sample {
	s := dataset.Sample{
		Split:     split,
		Index:     index,
		ImagePath: dataset.SampleName(split, index) + ".jpg",
		LabelPath: dataset.SampleName(split, index) + ".txt",
		Classes:   classes,
	}
	for _, c := range classes {
		s.Annotations = append(s.Annotations, annotation.Annotation{
			Class: int(c),
			Box:   types.CenterBox{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2},
		})
	}
	return s
}

func TestRecordAndDistribution(t *testing.T) {
	c := openTestCatalog(t)

	require.NoError(t, c.Record(sample("train", 0, conditions.Cavity)))
	require.NoError(t, c.Record(sample("train", 1, conditions.Cavity, conditions.Plaque)))
	require.NoError(t, c.Record(sample("val", 0, conditions.HealthyTooth)))

	counts, err := c.SampleCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"train": 2, "val": 1}, counts)

	dist, err := c.ClassDistribution()
	require.NoError(t, err)
	assert.Equal(t, []ClassCount{
		{Split: "val", Class: "healthy_tooth", Count: 1},
		{Split: "train", Class: "cavity", Count: 2},
		{Split: "train", Class: "plaque", Count: 1},
	}, dist)
}

func TestRecordReplacesSameSample(t *testing.T) {
	c := openTestCatalog(t)

	require.NoError(t, c.Record(sample("train", 0, conditions.Cavity, conditions.Tartar)))
	require.NoError(t, c.Record(sample("train", 0, conditions.Chipped)))

	counts, err := c.SampleCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["train"])

	dist, err := c.ClassDistribution()
	require.NoError(t, err)
	assert.Equal(t, []ClassCount{{Split: "train", Class: "chipped", Count: 1}}, dist)
}

func TestRecordRejectsMismatch(t *testing.T) {
	c := openTestCatalog(t)
	s := sample("train", 0, conditions.Cavity)
	s.Classes = nil
	assert.Error(t, c.Record(s))
}

func TestCatalogAsRecorder(t *testing.T) {
	c := openTestCatalog(t)
	root := t.TempDir()

	opts := dataset.DefaultOptions(root)
	opts.Count = 10
	opts.Render.Width, opts.Render.Height = 96, 96
	a, err := dataset.New(opts)
	require.NoError(t, err)
	_, err = a.WithRecorder(c).Run()
	require.NoError(t, err)

	counts, err := c.SampleCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"train": 8, "val": 2}, counts)

	dist, err := c.ClassDistribution()
	require.NoError(t, err)
	total := 0
	for _, cc := range dist {
		total += cc.Count
	}
	assert.Equal(t, 10, total)
}

func TestPruneDropsRowsBeyondRerun(t *testing.T) {
	c := openTestCatalog(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, c.Record(sample("train", i, conditions.Cavity)))
	}
	require.NoError(t, c.Record(sample("val", 0, conditions.Plaque)))
	require.NoError(t, c.Record(sample("val", 1, conditions.Plaque)))

	// A smaller rerun rewrites train_0000..0001 and val_0000.
	require.NoError(t, c.Record(sample("train", 0, conditions.Tartar)))
	require.NoError(t, c.Record(sample("train", 1, conditions.Tartar)))
	require.NoError(t, c.Record(sample("val", 0, conditions.Plaque)))
	removed, err := c.Prune(map[string]int{"train": 2, "val": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	counts, err := c.SampleCounts()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"train": 2, "val": 1}, counts)

	dist, err := c.ClassDistribution()
	require.NoError(t, err)
	assert.Equal(t, []ClassCount{
		{Split: "val", Class: "plaque", Count: 1},
		{Split: "train", Class: "tartar", Count: 2},
	}, dist)
}
