package mixer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/hcl"
	"github.com/vk/datamixer/internal/registry"
	"github.com/vk/datamixer/internal/settings"
	"github.com/vk/datamixer/internal/testutil"
	"github.com/vk/datamixer/modules/equation"
	"github.com/zclconf/go-cty/cty"
)

func newMixer(t *testing.T, opts Options, modules ...registry.Module) *Mixer {
	t.Helper()
	ctx := context.Background()
	reg := registry.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	require.NoError(t, reg.LoadDefinitions(ctx, hcl.NewLoader()))
	require.NoError(t, reg.ValidateRegistry(ctx))
	return New(reg, hcl.NewConverter(), opts)
}

func bundle(name string) *dataset.Bundle {
	return dataset.NewBundle(name, dataset.New("A", "det", []float64{1, 2, 3}))
}

// collector is a subscriber that records the names of emitted bundles.
type collector struct {
	mu    sync.Mutex
	names []string
}

func (c *collector) receive(_ context.Context, out *dataset.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, out.Name)
}

func (c *collector) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

func TestSelect(t *testing.T) {
	// Arrange
	rec := &testutil.RecorderModel{}
	m := newMixer(t, Options{}, rec.Module())

	// Act
	err := m.Select(context.Background(), "recorder")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "recorder", m.Active())
	assert.Equal(t, 1, rec.Inits())
	assert.Equal(t, []string{"recorder"}, m.Models())
	assert.NotEmpty(t, m.ID())
}

func TestSelect_UnknownModel(t *testing.T) {
	m := newMixer(t, Options{}, (&testutil.RecorderModel{}).Module())
	err := m.Select(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Empty(t, m.Active())
}

func TestOperationsRequireModel(t *testing.T) {
	m := newMixer(t, Options{}, (&testutil.RecorderModel{}).Module())

	_, err := m.Settings()
	assert.ErrorIs(t, err, ErrNoModel)
	assert.ErrorIs(t, m.UpdateSetting(context.Background(), "tag", cty.StringVal("x")), ErrNoModel)
	assert.ErrorIs(t, m.Feed(context.Background(), bundle("b")), ErrNoModel)
}

func TestUpdateSetting_RoutesChanges(t *testing.T) {
	// Arrange
	rec := &testutil.RecorderModel{}
	m := newMixer(t, Options{}, rec.Module())
	require.NoError(t, m.Select(context.Background(), "recorder"))

	// Act
	require.NoError(t, m.UpdateSetting(context.Background(), "tag", cty.StringVal("x")))
	require.NoError(t, m.UpdateSetting(context.Background(), "tag", cty.StringVal("x")))
	errReadOnly := m.UpdateSetting(context.Background(), "status", cty.StringVal("busy"))

	// Assert
	changes := rec.Changes()
	require.Len(t, changes, 1, "an unchanged value must not be reported")
	assert.Equal(t, "tag", changes[0].Path)
	assert.ErrorIs(t, errReadOnly, settings.ErrReadOnly)
}

func TestFeed_EmitsToSubscribersInOrder(t *testing.T) {
	// Arrange
	rec := &testutil.RecorderModel{}
	m := newMixer(t, Options{}, rec.Module())
	require.NoError(t, m.Select(context.Background(), "recorder"))

	var order []string
	m.Subscribe(func(_ context.Context, out *dataset.Bundle) { order = append(order, "first:"+out.Name) })
	m.Subscribe(func(_ context.Context, out *dataset.Bundle) { order = append(order, "second:"+out.Name) })

	// Act
	err := m.Feed(context.Background(), bundle("b1"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"first:r:b1", "second:r:b1"}, order)
}

func TestRun_PreservesOrderAndSkipsFailures(t *testing.T) {
	// Arrange
	rec := &testutil.RecorderModel{Sleep: time.Millisecond, Fail: map[string]bool{"b2": true}}
	m := newMixer(t, Options{}, rec.Module())
	require.NoError(t, m.Select(context.Background(), "recorder"))
	c := &collector{}
	m.Subscribe(c.receive)

	in := make(chan *dataset.Bundle, 5)
	for i := 1; i <= 5; i++ {
		in <- bundle(fmt.Sprintf("b%d", i))
	}
	close(in)

	// Act
	err := m.Run(context.Background(), in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"r:b1", "r:b3", "r:b4", "r:b5"}, c.got())

	records := rec.Records()
	require.Len(t, records, 5)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Start.Before(records[i-1].End), "Process calls must not overlap")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	// Arrange
	m := newMixer(t, Options{}, (&testutil.RecorderModel{}).Module())
	require.NoError(t, m.Select(context.Background(), "recorder"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	err := m.Run(ctx, make(chan *dataset.Bundle))

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_Timeout(t *testing.T) {
	// Arrange
	rec := &testutil.RecorderModel{Sleep: time.Second}
	m := newMixer(t, Options{ProcessTimeout: 10 * time.Millisecond}, rec.Module())
	require.NoError(t, m.Select(context.Background(), "recorder"))

	// Act
	out, err := m.Process(context.Background(), bundle("slow"))

	// Assert
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcess_RejectsInvalidBundle(t *testing.T) {
	// Arrange
	m := newMixer(t, Options{}, (&testutil.RecorderModel{}).Module())
	require.NoError(t, m.Select(context.Background(), "recorder"))
	bad := dataset.NewBundle("bad", &dataset.Dataset{Name: "A", Origin: "det", Shape: []int{3}, Components: [][]float64{{1}}})

	// Act
	_, err := m.Process(context.Background(), bad)

	// Assert
	assert.ErrorIs(t, err, dataset.ErrInvalidDataset)
}

func TestSelect_ListsLastSeenChannels(t *testing.T) {
	// Arrange
	m := newMixer(t, Options{}, &equation.Module{})
	ctx := context.Background()
	require.NoError(t, m.Select(ctx, equation.Name))
	require.NoError(t, m.Feed(ctx, bundle("acq")))

	// Act
	require.NoError(t, m.Select(ctx, equation.Name))

	// Assert
	tree, err := m.Settings()
	require.NoError(t, err)
	var s equation.Settings
	require.NoError(t, tree.Snapshot().Decode(ctx, &s))
	assert.Equal(t, []string{"det/A"}, s.Data1D.AllItems)
}

func TestFeed_EquationEndToEnd(t *testing.T) {
	// Arrange
	m := newMixer(t, Options{}, &equation.Module{})
	ctx := context.Background()
	require.NoError(t, m.Select(ctx, equation.Name))
	require.NoError(t, m.UpdateSetting(ctx, "edit_formula", cty.StringVal("{det/A}*2\nbad(")))
	var got *dataset.Bundle
	m.Subscribe(func(_ context.Context, out *dataset.Bundle) { got = out })

	// Act
	err := m.Feed(ctx, bundle("acq"))

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, equation.BundleName, got.Name)
	require.Len(t, got.Data, 1)
	assert.Equal(t, []float64{2, 4, 6}, got.Data[0].Components[0])
}

func TestFeed_EmptyChannelReductionIsSkipped(t *testing.T) {
	// Arrange
	m := newMixer(t, Options{}, &equation.Module{})
	ctx := context.Background()
	require.NoError(t, m.Select(ctx, equation.Name))
	require.NoError(t, m.UpdateSetting(ctx, "edit_formula", cty.StringVal("{det/A}+1\nnp.max({det/E})")))
	var got *dataset.Bundle
	m.Subscribe(func(_ context.Context, out *dataset.Bundle) { got = out })
	in := bundle("acq")
	in.Append(dataset.New("E", "det", []float64{}))

	// Act
	var err error
	require.NotPanics(t, func() { err = m.Feed(ctx, in) })

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "Formula_000", got.Data[0].Name)
	assert.Equal(t, []float64{2, 3, 4}, got.Data[0].Components[0])
}

func TestLastSeen_ReturnsCopies(t *testing.T) {
	// Arrange
	l := &LastSeen{}
	l.Observe(bundle("acq"))

	// Act
	first, err := l.Channels(context.Background())
	require.NoError(t, err)
	first[dataset.Dim1D][0] = "mutated"
	second, _ := l.Channels(context.Background())

	// Assert
	assert.Equal(t, []string{"det/A"}, second[dataset.Dim1D])
}
