package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFormulae(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty string", in: "", want: []string{""}},
		{name: "single line", in: "{a/b}+1", want: []string{"{a/b}+1"}},
		{name: "keeps empty lines", in: "x\n\n y ", want: []string{"x", "", " y "}},
		{name: "trailing newline", in: "x\n", want: []string{"x", ""}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitFormulae(tc.in))
			assert.Equal(t, tc.in, strings.Join(SplitFormulae(tc.in), "\n"))
		})
	}
}

func TestExtractDataNames(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "spec example", in: "{O3/C}/np.abs({O1/A}/{O2/B})", want: []string{"O3/C", "O1/A", "O2/B"}},
		{name: "duplicates kept", in: "{a/x}*{a/x}", want: []string{"a/x", "a/x"}},
		{name: "empty braces ignored", in: "{}+{a/x}", want: []string{"a/x"}},
		{name: "unterminated ignored", in: "{a/x + 1", want: []string{}},
		{name: "shortest match", in: "{a{b}c}", want: []string{"a{b"}},
		{name: "spaces in names", in: "{Spectrum - ROI_00/Hlineout_ROI_00}", want: []string{"Spectrum - ROI_00/Hlineout_ROI_00"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractDataNames(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, ExtractDataNames(tc.in))
		})
	}
}

func TestReplaceNamesInFormula(t *testing.T) {
	// Arrange
	in := "2*{O/A} + {O/B} - {O/A}"

	// Act
	out, tokens := ReplaceNamesInFormula(in)

	// Assert
	assert.Equal(t, `2*channel("O/A") + channel("O/B") - channel("O/A")`, out)
	assert.Equal(t, []string{"{O/A}", "{O/B}"}, tokens)
	assert.Empty(t, ExtractDataNames(out))
}

func TestReplaceNamesInFormula_EscapesBraces(t *testing.T) {
	out, tokens := ReplaceNamesInFormula("{a{b}+1")

	assert.Equal(t, []string{"{a{b}"}, tokens)
	assert.Equal(t, `channel("a\x7bb")+1`, out)

	expr, err := Parse(out)
	require.NoError(t, err)
	call := expr.root.(*binaryNode).left.(*callNode)
	assert.Equal(t, "a{b", call.args[0].(*stringNode).value)
}

func TestParse_Precedence(t *testing.T) {
	testCases := []struct {
		src  string
		want float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"-2**2", -4},
		{"2**3**2", 512},
		{"2**-1", 0.5},
		{"7 % 3", 1},
		{"-7 % 3", 2},
		{"10/4", 2.5},
		{"np.sqrt(16) + numpy.abs(-1) + floor(1.5)", 6},
		{"np.pi - pi", 0},
		{"1e3 + .5", 1000.5},
		{"np.maximum(1, 3) - np.minimum(1, 3)", 2},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			v, err := Evaluate(t.Context(), tc.src, nil)
			require.NoError(t, err)
			require.True(t, v.IsScalar())
			assert.InDelta(t, tc.want, v.Float(), 1e-12)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	testCases := []string{
		"1 +",
		"(1",
		"1 2",
		"os.system(1)",
		"np.",
		"abs(1,",
		`"text" + 1`,
		"1 $ 2",
		`channel("a`,
		"αx + 1",
		"np.abs(xé)",
	}
	for _, src := range testCases {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.ErrorIs(t, err, ErrSyntax)
		})
	}
}
