package equation

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/formula"
	"github.com/vk/datamixer/internal/metrics"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/settings"
)

const (
	// BundleName names every result bundle.
	BundleName = "Computed"
	// ScalarOrigin is the origin given to formulas that reduce to a number.
	ScalarOrigin = "Computed"
)

// listOptions maps each item_select option to the dimensionality it lists.
var listOptions = []struct {
	path string
	dim  dataset.Dim
}{
	{"data0D", dataset.Dim0D},
	{"data1D", dataset.Dim1D},
	{"data2D", dataset.Dim2D},
	{"dataND", dataset.DimND},
}

// Settings is the decoded option set of the equation model.
type Settings struct {
	Formula       string            `bggo:"edit_formula"`
	Data0D        config.ItemSelect `bggo:"data0D"`
	Data1D        config.ItemSelect `bggo:"data1D"`
	Data2D        config.ItemSelect `bggo:"data2D"`
	DataND        config.ItemSelect `bggo:"dataND"`
	LineTimeoutMs int               `bggo:"line_timeout_ms"`
}

// Model evaluates user formulas line by line.
type Model struct {
	env *model.Env

	// lineContext bounds the evaluation of one formula line.
	lineContext func(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc)
}

// New creates an equation model bound to env.
func New(env *model.Env) *Model {
	return &Model{env: env, lineContext: context.WithTimeout}
}

// Init fills the channel lists from the channel source.
func (m *Model) Init(ctx context.Context) error {
	return m.ShowDataList(ctx)
}

// ShowDataList refreshes the four item_select options with the channels
// currently available. Previous selections are cleared.
func (m *Model) ShowDataList(ctx context.Context) error {
	channels, err := m.env.ChannelList(ctx)
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}
	for _, opt := range listOptions {
		if _, err := m.env.Settings.Publish(opt.path, config.ItemSelectVal(channels[opt.dim], nil)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSettings reports formula lines that will not parse as soon as the
// formula text changes.
func (m *Model) UpdateSettings(ctx context.Context, change settings.Change) error {
	logger := ctxlog.FromContext(ctx)
	switch change.Path {
	case "edit_formula":
		for i, line := range formula.SplitFormulae(change.New.AsString()) {
			rewritten, _ := formula.ReplaceNamesInFormula(line)
			if _, err := formula.Parse(rewritten); err != nil {
				logger.Warn("Formula line will be skipped.", "line", i, "error", err)
			}
		}
	default:
		logger.Debug("Equation option changed.", "path", change.Path)
	}
	return nil
}

// Process evaluates every formula line against in. Lines that fail are
// skipped; the result bundle may be empty.
func (m *Model) Process(ctx context.Context, snap settings.Snapshot, in *dataset.Bundle) (*dataset.Bundle, error) {
	var s Settings
	if err := snap.Decode(ctx, &s); err != nil {
		return nil, fmt.Errorf("decoding equation settings: %w", err)
	}
	logger := ctxlog.FromContext(ctx)
	timeout := time.Duration(s.LineTimeoutMs) * time.Millisecond

	out := dataset.NewBundle(BundleName)
	for i, line := range formula.SplitFormulae(s.Formula) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := fmt.Sprintf("Formula_%03d", i)
		d, err := m.evaluateLine(ctx, line, in, name, timeout)
		metrics.RecordFormulaLine(err == nil)
		if err != nil {
			logger.Debug("Formula line skipped.", "line", i, "formula", line, "error", err)
			continue
		}
		out.Append(d)
	}
	return out, nil
}

func (m *Model) evaluateLine(ctx context.Context, line string, in *dataset.Bundle, name string, timeout time.Duration) (d *dataset.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%w: panic: %v", formula.ErrEvaluation, r)
		}
	}()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = m.lineContext(ctx, timeout)
		defer cancel()
	}
	v, err := formula.Evaluate(ctx, line, in)
	if err != nil {
		return nil, err
	}
	return v.ToDataset(name, ScalarOrigin), nil
}
