package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() *Layout {
	return &Layout{
		Name: "test",
		Sections: []Section{
			{
				Code: "H",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 10},
					{Code: "B", BayStart: 1, BayEnd: 5, Levels: []string{"B", "C"}},
				},
			},
			{
				Code: "B",
				Aisles: []Aisle{
					{Code: "A", Complex: true, BayStart: 1, BayEnd: 4, Subsections: []string{"1", "3", "7"}},
				},
			},
		},
	}
}

func TestNewCodecDefaults(t *testing.T) {
	l := testLayout()
	l.Sections[0].Aisles[0].BayStart = 0
	codec, err := NewCodec(l)
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckDigitSpace, l.CheckDigitSpace)
	assert.Equal(t, DefaultCheckDigitKey, l.CheckDigitKey)
	assert.Equal(t, 1, l.Sections[0].Aisles[0].BayStart)
	assert.Equal(t, 10+5*3+4*3, codec.AddressCount())
}

func TestNewCodecRejectsInvalidLayouts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Layout)
	}{
		{"no sections", func(l *Layout) { l.Sections = nil }},
		{"long section code", func(l *Layout) { l.Sections[0].Code = "HH" }},
		{"duplicate section", func(l *Layout) { l.Sections[1].Code = "H" }},
		{"duplicate aisle", func(l *Layout) { l.Sections[0].Aisles[1].Code = "A" }},
		{"section without aisles", func(l *Layout) { l.Sections[0].Aisles = nil }},
		{"negative bay start", func(l *Layout) { l.Sections[0].Aisles[0].BayStart = -1 }},
		{"bay end above limit", func(l *Layout) { l.Sections[0].Aisles[0].BayEnd = 1000 }},
		{"inverted bay range", func(l *Layout) { l.Sections[0].Aisles[0].BayStart = 8; l.Sections[0].Aisles[0].BayEnd = 3 }},
		{"bad level code", func(l *Layout) { l.Sections[0].Aisles[1].Levels = []string{"0"} }},
		{"duplicate level", func(l *Layout) { l.Sections[0].Aisles[1].Levels = []string{"B", "B"} }},
		{"complex without subsections", func(l *Layout) { l.Sections[1].Aisles[0].Subsections = nil }},
		{"subsections on simple aisle", func(l *Layout) { l.Sections[0].Aisles[0].Subsections = []string{"1"} }},
		{"bad subsection", func(l *Layout) { l.Sections[1].Aisles[0].Subsections = []string{"x"} }},
		{"bad location type", func(l *Layout) { l.Sections[0].Aisles[0].LocationType = "mezzanine" }},
		{"key not coprime", func(l *Layout) { l.CheckDigitSpace = 36; l.CheckDigitKey = 12 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLayout()
			tt.mutate(l)
			_, err := NewCodec(l)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
}

func TestGenerate(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	addresses, err := codec.Generate()
	require.NoError(t, err)
	require.Len(t, addresses, codec.AddressCount())

	// Canonical order assigns consecutive ordinals.
	for i, addr := range addresses {
		assert.Equal(t, i+1, addr.Ordinal)
		assert.GreaterOrEqual(t, addr.CheckDigit, 1)
		assert.LessOrEqual(t, addr.CheckDigit, DefaultCheckDigitSpace)
		assert.True(t, addr.IsActive)
	}

	assert.Equal(t, "HA-001", addresses[0].Code)
	assert.Equal(t, "HA-010", addresses[9].Code)
	assert.Equal(t, "HB-001", addresses[10].Code)
	assert.Equal(t, "HB-001.B", addresses[11].Code)
	assert.Equal(t, "HB-001.C", addresses[12].Code)
	assert.Equal(t, "BA-001.0.1", addresses[25].Code)
	assert.Equal(t, "BA-001.0.3", addresses[26].Code)
	assert.Equal(t, "BA-001.0.7", addresses[27].Code)
}

func TestGenerateDeterministic(t *testing.T) {
	first, err := NewCodec(testLayout())
	require.NoError(t, err)
	second, err := NewCodec(testLayout())
	require.NoError(t, err)

	a, err := first.Generate()
	require.NoError(t, err)
	b, err := second.Generate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCheckDigitFullPeriod(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	// A full-period multiplier visits every digit once per cycle.
	seen := make(map[int]struct{})
	for n := 1; n <= DefaultCheckDigitSpace; n++ {
		seen[codec.CheckDigit(n)] = struct{}{}
	}
	assert.Len(t, seen, DefaultCheckDigitSpace)
	assert.Equal(t, codec.CheckDigit(1), codec.CheckDigit(1+DefaultCheckDigitSpace))
}

func TestParseRoundTrip(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	addresses, err := codec.Generate()
	require.NoError(t, err)

	for _, addr := range addresses {
		parsed, err := codec.Parse(addr.Code)
		require.NoError(t, err, "parsing %s", addr.Code)
		assert.Equal(t, addr, *parsed)
	}
}

func TestParse(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	t.Run("lowercase and whitespace accepted", func(t *testing.T) {
		addr, err := codec.Parse("  hb-003.c ")
		require.NoError(t, err)
		assert.Equal(t, "HB-003.C", addr.Code)
		assert.Equal(t, "C", addr.Level)
		assert.Equal(t, EquipmentForklift, addr.Equipment)
	})

	tests := []struct {
		code string
		want error
	}{
		{"garbage", ErrMalformedCode},
		{"HA-1", ErrMalformedCode},
		{"HA-0001", ErrMalformedCode},
		{"HA-001.B.3.9", ErrMalformedCode},
		{"ZA-001", ErrUnknownSection},
		{"HZ-001", ErrUnknownAisle},
		{"HA-099", ErrBayOutOfRange},
		{"HA-003.0.1", ErrSubsectionNotAllowed},
		{"BA-002.0.2", ErrUnknownSubsection},
		{"BA-002", ErrMalformedCode},
		{"HB-002.F", ErrUnknownLevel},
		{"HA-003.B", ErrUnknownLevel},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := codec.Parse(tt.code)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComplexAisleScenario(t *testing.T) {
	// Section A, one complex aisle A with bays 001-099 and subsections
	// {1,3,7} yields 99x3 ground slots.
	codec, err := NewCodec(&Layout{
		Name: "bulk",
		Sections: []Section{
			{Code: "A", Aisles: []Aisle{
				{Code: "A", Complex: true, BayStart: 1, BayEnd: 99, Subsections: []string{"1", "3", "7"}},
			}},
		},
	})
	require.NoError(t, err)

	addresses, err := codec.Generate()
	require.NoError(t, err)
	assert.Len(t, addresses, 99*3)

	addr, err := codec.Parse("AA-045.0.3")
	require.NoError(t, err)
	assert.Equal(t, 45, addr.Bay)
	assert.Equal(t, "3", addr.Subsection)
	assert.Equal(t, (45-1)*3+2, addr.Ordinal)
	assert.Equal(t, codec.CheckDigit(addr.Ordinal), addr.CheckDigit)
}

func TestVerify(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	addr, err := codec.Parse("HB-002.B")
	require.NoError(t, err)
	assert.NoError(t, codec.Verify(addr))

	addr.CheckDigit++
	assert.ErrorIs(t, codec.Verify(addr), ErrCheckDigitMismatch)
}

func TestSpokenForm(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	ground, _ := codec.Parse("HA-007")
	elevated, _ := codec.Parse("HB-002.C")
	bulk, _ := codec.Parse("BA-003.0.7")

	assert.Contains(t, codec.SpokenForm(ground), "section H, aisle A, bay 7")
	assert.Contains(t, codec.SpokenForm(elevated), "level C")
	assert.Contains(t, codec.SpokenForm(bulk), "slot 7")
	assert.Contains(t, codec.SpokenForm(bulk), "check")
}

func TestSummarize(t *testing.T) {
	codec, err := NewCodec(testLayout())
	require.NoError(t, err)

	summary := codec.Summarize()
	assert.Equal(t, 2, summary.Sections)
	assert.Equal(t, 3, summary.Aisles)
	assert.Equal(t, codec.AddressCount(), summary.Addresses)
	assert.Equal(t, 10+15, summary.BySection["H"])
	assert.Equal(t, 12, summary.BySection["B"])
	assert.Equal(t, codec.AddressCount(), summary.ByType[TypePick])
	assert.Equal(t, 5, summary.ByEquipment[EquipmentForklift])
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{"large", "medium", "small"}, TemplateNames())

	for _, name := range TemplateNames() {
		t.Run(name, func(t *testing.T) {
			l, err := Template(name)
			require.NoError(t, err)
			codec, err := NewCodec(l)
			require.NoError(t, err)
			addresses, err := codec.Generate()
			require.NoError(t, err)
			assert.NotEmpty(t, addresses)
		})
	}

	_, err := Template("galactic")
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestAddressOverCapacity(t *testing.T) {
	addr := Address{Capacity: 10, CurrentOccupancy: 10}
	assert.False(t, addr.OverCapacity())
	addr.CurrentOccupancy = 11
	assert.True(t, addr.OverCapacity())
}
