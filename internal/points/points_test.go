package points

import (
	"testing"

	"github.com/geocoder89/housepoints/internal/domain/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func val(v float64) *float64 { return &v }

func TestSummarize_EmptyInput(t *testing.T) {
	got := Summarize(map[int][]item.Item{}, []int{0, 1, 2})

	assert.Equal(t, []Summary{
		{PageIndex: 0, TotalPoints: 0, ItemCount: 0},
		{PageIndex: 1, TotalPoints: 0, ItemCount: 0},
		{PageIndex: 2, TotalPoints: 0, ItemCount: 0},
	}, got)
}

func TestSummarize_NilMap(t *testing.T) {
	got := Summarize(nil, []int{3})

	assert.Equal(t, []Summary{{PageIndex: 3}}, got)
}

func TestSummarize_SumsValues(t *testing.T) {
	items := map[int][]item.Item{
		0: {{ID: "a", NumericalValue: val(5)}, {ID: "b", NumericalValue: val(2.5)}},
	}

	got := Summarize(items, []int{0})

	assert.Equal(t, []Summary{{PageIndex: 0, TotalPoints: 7.5, ItemCount: 2}}, got)
}

func TestSummarize_MissingValueCountsAsZero(t *testing.T) {
	items := map[int][]item.Item{
		0: {{ID: "a", NumericalValue: nil}},
	}

	got := Summarize(items, []int{0})

	assert.Equal(t, []Summary{{PageIndex: 0, TotalPoints: 0, ItemCount: 1}}, got)
}

func TestSummarize_OnlyRequestedPagesInRequestedOrder(t *testing.T) {
	items := map[int][]item.Item{
		0: {{ID: "a", NumericalValue: val(1)}},
		1: {{ID: "b", NumericalValue: val(2)}},
		7: {{ID: "c", NumericalValue: val(100)}},
	}

	got := Summarize(items, []int{1, 0})

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].PageIndex)
	assert.Equal(t, 2.0, got[0].TotalPoints)
	assert.Equal(t, 0, got[1].PageIndex)
	assert.Equal(t, 1.0, got[1].TotalPoints)
}

func TestSummarize_FloatingPointSum(t *testing.T) {
	items := map[int][]item.Item{
		0: {{NumericalValue: val(0.1)}, {NumericalValue: val(0.2)}},
	}

	got := Summarize(items, []int{0})

	assert.InDelta(t, 0.3, got[0].TotalPoints, 1e-9)
}

func TestSummarize_Idempotent(t *testing.T) {
	items := map[int][]item.Item{
		0: {{NumericalValue: val(3)}, {NumericalValue: nil}},
		2: {{NumericalValue: val(4.25)}},
	}
	pages := []int{0, 1, 2}

	first := Summarize(items, pages)
	second := Summarize(items, pages)

	assert.Equal(t, first, second)
}

func TestSummarize_ReflectsNewItemOnce(t *testing.T) {
	items := map[int][]item.Item{
		0: {{ID: "a", NumericalValue: val(10)}},
	}
	pages := []int{0}

	before := Summarize(items, pages)
	items[0] = append(items[0], item.Item{ID: "b", NumericalValue: val(5)})
	after := Summarize(items, pages)

	assert.Equal(t, 10.0, before[0].TotalPoints)
	assert.Equal(t, 15.0, after[0].TotalPoints)
	assert.Equal(t, 2, after[0].ItemCount)
}

func TestRank_StableDescending(t *testing.T) {
	in := []Summary{
		{PageIndex: 0, TotalPoints: 10, ItemCount: 1},
		{PageIndex: 1, TotalPoints: 20, ItemCount: 1},
		{PageIndex: 2, TotalPoints: 10, ItemCount: 1},
	}

	got := Rank(in)

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 0, 2}, []int{got[0].PageIndex, got[1].PageIndex, got[2].PageIndex})
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Rank, got[1].Rank, got[2].Rank})
}

func TestRank_AllTiedKeepsInputOrder(t *testing.T) {
	in := []Summary{{PageIndex: 4}, {PageIndex: 2}, {PageIndex: 0}, {PageIndex: 5}}

	got := Rank(in)

	for i, r := range got {
		assert.Equal(t, in[i].PageIndex, r.PageIndex)
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []Summary{{PageIndex: 0, TotalPoints: 1}, {PageIndex: 1, TotalPoints: 2}}

	_ = Rank(in)

	assert.Equal(t, 0, in[0].PageIndex)
	assert.Equal(t, 1, in[1].PageIndex)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

func TestSummarizeThenRank(t *testing.T) {
	items := map[int][]item.Item{
		0: {{NumericalValue: val(3)}},
		1: {{NumericalValue: val(8)}, {NumericalValue: val(1)}},
		3: {{NumericalValue: val(3)}},
	}

	got := Rank(Summarize(items, []int{0, 1, 2, 3}))

	assert.Equal(t, 1, got[0].PageIndex)
	assert.Equal(t, 9.0, got[0].TotalPoints)
	assert.Equal(t, 0, got[1].PageIndex)
	assert.Equal(t, 3, got[2].PageIndex)
	assert.Equal(t, 2, got[3].PageIndex)
	assert.Equal(t, 4, got[3].Rank)
}
