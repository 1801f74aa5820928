package pattern

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStandardPassCounts(t *testing.T) {
	tests := []struct {
		standard Standard
		want     int
	}{
		{StandardZero, 1},
		{StandardOne, 1},
		{StandardRandom, 1},
		{StandardDoD3, 3},
		{StandardGutmann, 35},
	}

	for _, tt := range tests {
		t.Run(string(tt.standard), func(t *testing.T) {
			passes, err := Resolve(Spec{Standard: tt.standard})
			require.NoError(t, err)
			assert.Len(t, passes, tt.want)
		})
	}
}

func TestResolveDoD3Order(t *testing.T) {
	passes, err := Resolve(Spec{Standard: StandardDoD3})
	require.NoError(t, err)
	require.Len(t, passes, 3)

	assert.Equal(t, RuleConstant, passes[0].Rule.Kind)
	assert.Equal(t, byte(0x55), passes[0].Rule.Bytes[0])
	assert.Equal(t, RuleConstant, passes[1].Rule.Kind)
	assert.Equal(t, byte(0xAA), passes[1].Rule.Bytes[0])
	assert.Equal(t, RuleRandom, passes[2].Rule.Kind)
}

func TestResolveGutmannStructure(t *testing.T) {
	passes, err := Resolve(Spec{Standard: StandardGutmann})
	require.NoError(t, err)
	require.Len(t, passes, 35)

	// 4 случайных прохода в начале и в конце
	for i := 0; i < 4; i++ {
		assert.True(t, passes[i].IsRandom(), "pass %d", i)
		assert.True(t, passes[34-i].IsRandom(), "pass %d", 34-i)
	}

	// Известные фиксированные проходы
	assert.Equal(t, byte(0x55), passes[4].Rule.Bytes[0])
	assert.Equal(t, byte(0xAA), passes[5].Rule.Bytes[0])
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, passes[6].Rule.Bytes)
	assert.Equal(t, byte(0x00), passes[9].Rule.Bytes[0])
	assert.Equal(t, byte(0xFF), passes[24].Rule.Bytes[0])
	assert.Equal(t, []byte{0xDB, 0x6D, 0xB6}, passes[30].Rule.Bytes)
}

func TestResolveCustomAllValidCounts(t *testing.T) {
	for n := MinPasses; n <= MaxPasses; n++ {
		passes, err := Resolve(Spec{Standard: StandardCustom, Custom: []byte{0xDE, 0xAD}, Passes: n})
		require.NoError(t, err, "passes=%d", n)
		require.Len(t, passes, n)
		for i, p := range passes {
			assert.Equal(t, RuleSequence, p.Rule.Kind)
			assert.Equal(t, fmt.Sprintf("custom-%d", i+1), p.Name)
		}
	}
}

func TestResolveCustomInvalid(t *testing.T) {
	_, err := Resolve(Spec{Standard: StandardCustom, Custom: []byte{0x01}, Passes: 0})
	assert.ErrorIs(t, err, ErrInvalidPassCount)

	_, err = Resolve(Spec{Standard: StandardCustom, Custom: []byte{0x01}, Passes: 36})
	assert.ErrorIs(t, err, ErrInvalidPassCount)

	_, err = Resolve(Spec{Standard: StandardCustom, Custom: nil, Passes: 3})
	assert.ErrorIs(t, err, ErrEmptyPattern)
}

func TestResolveUnknownStandard(t *testing.T) {
	_, err := Resolve(Spec{Standard: "dod7"})
	assert.ErrorIs(t, err, ErrUnknownStandard)
}

func TestFillConstant(t *testing.T) {
	passes, err := Resolve(Spec{Standard: StandardZero})
	require.NoError(t, err)

	buf := []byte{1, 2, 3, 4}
	require.NoError(t, passes[0].Fill(buf, 0))
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)
}

func TestFillSequenceAlignment(t *testing.T) {
	passes, err := Resolve(Spec{Standard: StandardCustom, Custom: []byte{0xDE, 0xAD, 0xBE, 0xEF}, Passes: 1})
	require.NoError(t, err)

	// Заполнение со смещения 2 должно продолжать паттерн, а не начинать заново
	buf := make([]byte, 6)
	require.NoError(t, passes[0].Fill(buf, 2))
	assert.Equal(t, []byte{0xBE, 0xEF, 0xDE, 0xAD, 0xBE, 0xEF}, buf)
}

func TestFillRandomNotDeterministic(t *testing.T) {
	passes, err := Resolve(Spec{Standard: StandardRandom})
	require.NoError(t, err)

	a := make([]byte, 1024)
	b := make([]byte, 1024)
	require.NoError(t, passes[0].Fill(a, 0))
	require.NoError(t, passes[0].Fill(b, 0))
	assert.NotEqual(t, a, b)
}

func TestExpectedByte(t *testing.T) {
	seq := PassSpec{Rule: ByteRule{Kind: RuleSequence, Bytes: []byte{0xAB, 0xCD}}}
	b, ok := seq.ExpectedByte(3)
	assert.True(t, ok)
	assert.Equal(t, byte(0xCD), b)

	rnd := PassSpec{Rule: ByteRule{Kind: RuleRandom}}
	_, ok = rnd.ExpectedByte(0)
	assert.False(t, ok)
}

func TestValidateStandard(t *testing.T) {
	s, err := ValidateStandard("gutmann35")
	require.NoError(t, err)
	assert.Equal(t, StandardGutmann, s)

	_, err = ValidateStandard("bogus")
	assert.ErrorIs(t, err, ErrUnknownStandard)
}
