package recognizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair_KeepsValidCandidate(t *testing.T) {
	b := builder()
	amount := region(1, KindAmount, "1,000.00", 600, 0, 800, 40)
	c := b.build(amount, []ClassifiedRegion{region(0, KindContent, "鑫添益理财", 0, 0, 300, 40)}, 0)

	got, ok := b.repair(c, PageLayout{})
	require.True(t, ok)
	assert.Equal(t, c, got)
}

func TestRepair_NameFromRelatedRegions(t *testing.T) {
	b := builder()
	amount := region(2, KindAmount, "1,000.00", 600, 0, 800, 40)
	parts := []ClassifiedRegion{
		region(0, KindContent, "R2", 0, 0, 40, 40),
		region(1, KindContent, "鑫添益理财", 50, 0, 300, 40),
	}
	c := b.build(amount, parts, 0)
	c.CleanedName = "产品"

	got, ok := b.repair(c, PageLayout{})
	require.True(t, ok)
	assert.Equal(t, "鑫添益理财", got.CleanedName)
	assert.Equal(t, "产品", c.CleanedName, "the input candidate is left untouched")
}

func TestRepair_NameFromTextAbove(t *testing.T) {
	b := builder()
	above := region(0, KindContent, "工银添利宝", 0, 0, 300, 40)
	tooFar := region(1, KindContent, "鑫添益理财", 0, -400, 300, -360)
	amount := region(2, KindAmount, "1,000.00", 0, 100, 200, 140)
	page := buildPage([]ClassifiedRegion{tooFar, above, amount}, false)

	got, ok := b.repair(b.build(amount, nil, 0), page)
	require.True(t, ok)
	assert.Equal(t, "工银添利宝", got.CleanedName)
	require.Len(t, got.NameRegions, 1)
	assert.Equal(t, 0, got.NameRegions[0].ID)
}

func TestRepair_DefaultNameIsReplaced(t *testing.T) {
	b := builder()
	above := region(0, KindContent, "工银添利宝", 0, 0, 300, 40)
	placeholder := region(1, KindContent, "未知产品", 0, 100, 200, 140)
	amount := region(2, KindAmount, "1,000.00", 400, 100, 600, 140)
	page := buildPage([]ClassifiedRegion{above, placeholder, amount}, false)

	got, ok := b.repair(b.build(amount, []ClassifiedRegion{placeholder}, 0), page)
	require.True(t, ok)
	assert.Equal(t, "工银添利宝", got.CleanedName)
}

func TestRepair_AmountFromRelatedText(t *testing.T) {
	b := builder()
	amount := region(1, KindAmount, "0.00", 600, 0, 800, 40)
	name := region(0, KindContent, "鑫添益理财 持有12,041.40", 0, 0, 300, 40)
	c := b.build(amount, []ClassifiedRegion{name}, 0)
	require.True(t, c.Amount.IsZero())

	got, ok := b.repair(c, PageLayout{})
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("12041.40").Equal(got.Amount))
}

func TestRepair_AmountIgnoresNamesWithoutAmounts(t *testing.T) {
	b := builder()
	amount := region(1, KindAmount, "0.00", 600, 0, 800, 40)
	c := b.build(amount, []ClassifiedRegion{region(0, KindContent, "鑫添益理财 2024-03-01", 0, 0, 300, 40)}, 0)

	got := b.repairAmount(c)
	assert.True(t, got.Amount.IsZero(), "dates are not amounts")
	assert.Equal(t, c.AmountRegion, got.AmountRegion)
}

func TestRepair_Discards(t *testing.T) {
	b := builder()

	short := b.build(region(1, KindAmount, "1,000.00", 600, 0, 800, 40),
		[]ClassifiedRegion{region(0, KindContent, "AB", 0, 0, 40, 40)}, 0)
	_, ok := b.repair(short, PageLayout{})
	assert.False(t, ok, "names under three characters are dropped")

	zero := b.build(region(1, KindAmount, "0.00", 600, 0, 800, 40),
		[]ClassifiedRegion{region(0, KindContent, "鑫添益理财", 0, 0, 300, 40)}, 0)
	_, ok = b.repair(zero, PageLayout{})
	assert.False(t, ok, "non-positive amounts are dropped")
}
