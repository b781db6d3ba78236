package harmonics

import (
	"context"
	"fmt"

	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/peaks"
	"github.com/vk/datamixer/internal/settings"
	"github.com/zclconf/go-cty/cty"
)

const (
	// BundleName names every result bundle.
	BundleName = "computed"

	highestPeakPath = "find_peaks.highest_peak"
)

// Settings is the decoded option set of the harmonics model.
type Settings struct {
	HighestPeak float64 `bggo:"find_peaks.highest_peak"`
	Enabled     bool    `bggo:"find_peaks.options.enabled"`
	Height      float64 `bggo:"find_peaks.options.height"`
	Distance    int     `bggo:"find_peaks.options.distance"`
	IndMin      int     `bggo:"cropping.ind_min"`
	IndMax      int     `bggo:"cropping.ind_max"`
}

func (s Settings) peakOptions() peaks.Options {
	if !s.Enabled {
		return peaks.Options{}
	}
	height := s.Height
	return peaks.Options{Height: &height, Distance: s.Distance}
}

// Model crops the first trace of each bundle around its highest peak.
type Model struct {
	env *model.Env

	// lastPeak is the index of the highest peak of the last processed trace,
	// or -1 before the first success.
	lastPeak int
}

// New creates a harmonics model bound to env.
func New(env *model.Env) *Model {
	return &Model{env: env, lastPeak: -1}
}

// Init implements model.Model.
func (m *Model) Init(context.Context) error {
	m.lastPeak = -1
	return nil
}

// UpdateSettings warns about crop windows that can never hold data.
func (m *Model) UpdateSettings(ctx context.Context, change settings.Change) error {
	logger := ctxlog.FromContext(ctx)
	switch change.Path {
	case "cropping.ind_min", "cropping.ind_max":
		lo, errLo := m.env.Settings.Get("cropping.ind_min")
		hi, errHi := m.env.Settings.Get("cropping.ind_max")
		if errLo == nil && errHi == nil && lo.GreaterThanOrEqualTo(hi).True() {
			logger.Warn("Crop window is empty.", "ind_min", lo.AsBigFloat().String(), "ind_max", hi.AsBigFloat().String())
		}
	default:
		logger.Debug("Harmonics option changed.", "path", change.Path)
	}
	return nil
}

// LastPeak returns the index of the most recent highest peak, or -1.
func (m *Model) LastPeak() int {
	return m.lastPeak
}

// Process finds the highest peak of the first dataset, publishes its axis
// coordinate and returns the trace cropped around it with fresh index axes.
func (m *Model) Process(ctx context.Context, snap settings.Snapshot, in *dataset.Bundle) (*dataset.Bundle, error) {
	var s Settings
	if err := snap.Decode(ctx, &s); err != nil {
		return nil, fmt.Errorf("decoding harmonics settings: %w", err)
	}
	if in.Len() == 0 {
		return nil, fmt.Errorf("%w: bundle %q is empty", model.ErrRequiredChannelMissing, in.Name)
	}
	src, err := in.At(0)
	if err != nil {
		return nil, err
	}
	if src.Dim != dataset.Dim1D {
		return nil, fmt.Errorf("%w: harmonics needs 1D data, %s is %s", dataset.ErrUnsupportedDim, src.FullName(), src.Dim)
	}
	data := src.DeepCopy()
	trace := data.Components[0]

	found, err := peaks.Find(trace, s.peakOptions())
	if err != nil {
		return nil, err
	}
	best, err := peaks.Highest(trace, found)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrEmptyPeakSet, src.FullName(), err)
	}
	m.lastPeak = best

	coordinate := data.AxisData(0)[best]
	if _, err := m.env.Settings.Publish(highestPeakPath, cty.NumberFloatVal(coordinate)); err != nil {
		return nil, fmt.Errorf("publishing highest peak: %w", err)
	}

	start, stop := clampWindow(best+s.IndMin, best+s.IndMax, len(trace))
	if start >= stop {
		return nil, fmt.Errorf("%w: [%d, %d) around peak %d of %d samples",
			model.ErrEmptyCropWindow, best+s.IndMin, best+s.IndMax, best, len(trace))
	}
	if err := data.Crop(start, stop); err != nil {
		return nil, err
	}
	data.Axes = nil
	data.CreateMissingAxes()

	ctxlog.FromContext(ctx).Debug("Trace cropped around highest peak.",
		"channel", src.FullName(), "peaks", len(found), "peak", best, "start", start, "stop", stop)
	return dataset.NewBundle(BundleName, data), nil
}

func clampWindow(start, stop, n int) (int, int) {
	return max(start, 0), min(stop, n)
}
