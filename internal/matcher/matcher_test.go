package matcher

import (
	"testing"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "鑫尊利28天持盈1号", Key(" 鑫尊利 28天·持盈 (1号)"))
	assert.Equal(t, "abc", Key("ＡＢＣ"))
	assert.Equal(t, "", Key(" · | "))
}

func TestScore_Signals(t *testing.T) {
	m := New(DefaultPolicy(), nil)

	score, how := m.Score("招银·日日金", "招银 日日金 ")
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, MethodExact, how)

	score, _ = m.Score("鑫尊利28天持盈", "鑫尊利28天持盈1号")
	assert.GreaterOrEqual(t, score, 0.75+0.2*9.0/11.0-1e-9)

	score, how = m.Score("ABCD", "DCBA")
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Equal(t, MethodCharJaccard, how)

	score, how = m.Score("", "鑫添益")
	assert.Zero(t, score)
	assert.Equal(t, MethodNone, how)
}

func TestScore_Containment(t *testing.T) {
	assert.InDelta(t, 0.95, containment("鑫添益", "鑫添益"), 1e-9)
	assert.InDelta(t, 0.85, containment("鑫添", "鑫添益理"), 1e-9)
	assert.Zero(t, containment("鑫添", "益理"))
}

func TestScore_KeywordJaccard(t *testing.T) {
	v, err := vocab.Parse([]byte("product_keywords: [alpha, beta]\ninstitutions: [zzz]\n"))
	require.NoError(t, err)
	m := New(DefaultPolicy(), v)

	score, how := m.Score("alpha beta x", "beta alpha y")
	assert.InDelta(t, 0.9, score, 1e-9)
	assert.Equal(t, MethodKeywordJaccard, how)
}

func TestScore_Bounded(t *testing.T) {
	m := New(DefaultPolicy(), nil)
	names := []string{"鑫添益理财", "招银日日金", "工银添利宝1号", "Global Bond", "a", "未知产品A"}
	for _, a := range names {
		for _, b := range names {
			s, _ := m.Score(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestBest(t *testing.T) {
	m := New(DefaultPolicy(), nil)
	assets := []catalog.Asset{
		{ID: "1", Name: "招银日日金"},
		{ID: "7", Name: "鑫尊利28天持盈1号"},
		{ID: "8", Name: "鑫尊利28天持盈1号"},
	}

	got := m.Best("鑫尊利28天持盈", assets)
	require.True(t, got.Found())
	assert.Equal(t, catalog.AssetID("7"), got.Asset.ID, "ties keep the first entry")
	assert.Equal(t, 1, got.Index)
	assert.GreaterOrEqual(t, got.Score, 0.75)

	miss := m.Best("未知产品A", assets)
	assert.False(t, miss.Found())
	assert.Zero(t, miss.Score)
	assert.Equal(t, MethodNone, miss.Method)

	assert.False(t, m.Best("鑫添益", nil).Found())
}
