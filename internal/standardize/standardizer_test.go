package standardize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-std/internal/config"
	"place-std/internal/place"
	"place-std/internal/scoring"
	"place-std/internal/store/mem"
	"place-std/internal/tokenize"
)

// 测试词典：
//
//	USA(1500) ─ Illinois(10) ─ Sangamon(20) ─ Springfield(30), Oak Ridge Cemetery(50)
//	                         ├ Cook(21, county) ─ Chicago(31), Cook(34, township)
//	                         └ De(60)
//	          ─ Missouri(11) ─ Greene(22) ─ Springfield(32)
//	          ─ Mississippi(12) ─ Lafayette(23) ─ Oxford(43)
//	England(1200) ─ Oxfordshire(40) ─ Oxford(41)
func fixtureStore() *mem.Store {
	m := mem.New()
	m.Add(
		&place.Place{ID: 1500, Name: "USA", Level: 1, CountryID: 1500, Types: []string{"country"}},
		&place.Place{ID: 10, Name: "Illinois", Level: 2, CountryID: 1500, LocatedIn: 1500, Types: []string{"state"}},
		&place.Place{ID: 11, Name: "Missouri", Level: 2, CountryID: 1500, LocatedIn: 1500, Types: []string{"state"}},
		&place.Place{ID: 12, Name: "Mississippi", Level: 2, CountryID: 1500, LocatedIn: 1500, Types: []string{"state"}},
		&place.Place{ID: 20, Name: "Sangamon", Level: 3, CountryID: 1500, LocatedIn: 10, Types: []string{"county"}},
		&place.Place{ID: 21, Name: "Cook", Level: 3, CountryID: 1500, LocatedIn: 10, Types: []string{"county"}},
		&place.Place{ID: 22, Name: "Greene", Level: 3, CountryID: 1500, LocatedIn: 11, Types: []string{"county"}},
		&place.Place{ID: 23, Name: "Lafayette", Level: 3, CountryID: 1500, LocatedIn: 12, Types: []string{"county"}},
		&place.Place{ID: 30, Name: "Springfield", Level: 4, CountryID: 1500, LocatedIn: 20, Types: []string{"city"}},
		&place.Place{ID: 31, Name: "Chicago", Level: 4, CountryID: 1500, LocatedIn: 21, Types: []string{"city"}},
		&place.Place{ID: 32, Name: "Springfield", Level: 4, CountryID: 1500, LocatedIn: 22, Types: []string{"city"}},
		&place.Place{ID: 34, Name: "Cook", Level: 4, CountryID: 1500, LocatedIn: 21, Types: []string{"township"}},
		&place.Place{ID: 43, Name: "Oxford", Level: 4, CountryID: 1500, LocatedIn: 23, Types: []string{"city"}},
		&place.Place{ID: 50, Name: "Oak Ridge Cemetery", Level: 4, CountryID: 1500, LocatedIn: 20, Types: []string{"cemetery"}},
		&place.Place{ID: 60, Name: "De", Level: 3, CountryID: 1500, LocatedIn: 10},
		&place.Place{ID: 1200, Name: "England", Level: 1, CountryID: 1200, Types: []string{"country"}},
		&place.Place{ID: 40, Name: "Oxfordshire", Level: 2, CountryID: 1200, LocatedIn: 1200, Types: []string{"county"}},
		&place.Place{ID: 41, Name: "Oxford", Level: 3, CountryID: 1200, LocatedIn: 40, Types: []string{"city"}},
	)
	m.AddWord("usa", 1500)
	m.AddWord("illinois", 10)
	m.AddWord("missouri", 11)
	m.AddWord("mississippi", 12)
	m.AddWord("sangamon", 20)
	m.AddWord("cook", 21, 34)
	m.AddWord("greene", 22)
	m.AddWord("lafayette", 23)
	m.AddWord("springfield", 30, 32)
	m.AddWord("chicago", 31)
	m.AddWord("oxford", 41, 43)
	m.AddWord("oakridgecemetery", 50)
	m.AddWord("oakridge", 50)
	m.AddWord("de", 60)
	m.AddWord("england", 1200)
	m.AddWord("oxfordshire", 40)
	return m
}

func newTestStandardizer(t *testing.T) (*Standardizer, *Recorder) {
	t.Helper()
	rules, err := config.Default()
	require.NoError(t, err)
	rec := &Recorder{}
	return New(rules, fixtureStore(), WithErrorHandler(rec)), rec
}

func ids(res []scoring.PlaceScore) []int {
	out := make([]int, 0, len(res))
	for _, r := range res {
		out = append(out, r.Place.ID)
	}
	return out
}

func TestFullHierarchyResolvesWithoutDiagnostics(t *testing.T) {
	s, rec := newTestStandardizer(t)
	res := s.Resolve(context.Background(), "Springfield, Sangamon, Illinois, USA", "", ModeBest, 1)
	require.Len(t, res, 1)
	assert.Equal(t, 30, res[0].Place.ID)
	assert.InDelta(t, 0.4+0.5+1.0/11, res[0].Score, 1e-9)
	assert.Empty(t, rec.Diagnostics())
	assert.Equal(t, "Springfield, Sangamon, Illinois, USA", s.FullName(context.Background(), res[0].Place))
}

func TestOmittedCountyResolvesThroughDescendants(t *testing.T) {
	s, rec := newTestStandardizer(t)
	p := s.Standardize(context.Background(), "Springfield, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 30, p.ID)
	assert.Empty(t, rec.Diagnostics())
}

func TestGrandparentReattachment(t *testing.T) {
	s, rec := newTestStandardizer(t)
	p := s.Standardize(context.Background(), "Springfield, Cook, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 30, p.ID)
	require.Len(t, rec.Diagnostics(), 1)
	d := rec.Diagnostics()[0]
	assert.Equal(t, KindSkippingParentLevel, d.Kind)
	assert.Equal(t, 0, d.Level)
	assert.Equal(t, []int{30}, d.IDs)
}

func TestNonSkippableFreshMatch(t *testing.T) {
	s, rec := newTestStandardizer(t)
	p := s.Standardize(context.Background(), "Illinois, Sangamon")
	require.NotNil(t, p)
	assert.Equal(t, 10, p.ID)
	assert.Equal(t, 1, rec.Count(KindSkippingParentLevel))
	assert.Len(t, rec.Diagnostics(), 1)
}

func TestUnknownPlace(t *testing.T) {
	s, rec := newTestStandardizer(t)
	res := s.Resolve(context.Background(), "Atlantis, Nowhereland", "", ModeBest, 1)
	assert.Empty(t, res)
	assert.Equal(t, 1, rec.Count(KindPlaceNotFound))
	assert.Equal(t, 1, rec.Count(KindTokenNotFound), "only the first token miss is reported")
}

func TestNoiseOnlyInputReportsNothing(t *testing.T) {
	s, rec := newTestStandardizer(t)
	assert.Empty(t, s.Resolve(context.Background(), "of the, near", "", ModeBest, 1))
	assert.Empty(t, s.Resolve(context.Background(), "", "", ModeBest, 1))
	assert.Empty(t, rec.Diagnostics())
}

func TestAmbiguousRanksByWeights(t *testing.T) {
	s, rec := newTestStandardizer(t)
	res := s.Resolve(context.Background(), "Oxford", "", ModeBest, 2)
	assert.Equal(t, []int{41, 43}, ids(res))
	// 英格兰属中等国家：0.5(L3) > 美国大国 0.4(L4)
	assert.Greater(t, res[0].Score, res[1].Score)
	require.Len(t, rec.Diagnostics(), 1)
	d := rec.Diagnostics()[0]
	assert.Equal(t, KindAmbiguous, d.Kind)
	assert.Equal(t, 41, d.TopID)
	assert.ElementsMatch(t, []int{41, 43}, d.IDs)

	one := s.Resolve(context.Background(), "Oxford", "", ModeBest, 1)
	assert.Equal(t, []int{41}, ids(one))
}

func TestDefaultCountryNarrowsFirstMatch(t *testing.T) {
	s, rec := newTestStandardizer(t)
	p := s.StandardizeIn(context.Background(), "Oxford", "USA")
	require.NotNil(t, p)
	assert.Equal(t, 43, p.ID)
	assert.Empty(t, rec.Diagnostics())

	// 默认国家解析不到时保留原集合
	p = s.StandardizeIn(context.Background(), "Oxford", "Narnia")
	require.NotNil(t, p)
	assert.Equal(t, 41, p.ID)
	assert.Equal(t, 1, rec.Count(KindAmbiguous))
	assert.Zero(t, rec.Count(KindPlaceNotFound), "the default country lookup reports no diagnostics")
}

func TestRequiredMode(t *testing.T) {
	s, rec := newTestStandardizer(t)
	ctx := context.Background()

	assert.Empty(t, s.Resolve(ctx, "Atlantis, Illinois", "", ModeRequired, 1))
	assert.Equal(t, 1, rec.Count(KindTokenNotFound))

	best := s.Resolve(ctx, "Atlantis, Illinois", "", ModeBest, 1)
	assert.Equal(t, []int{10}, ids(best))

	assert.Equal(t, []int{30}, ids(s.Resolve(ctx, "Springfield, Illinois", "", ModeRequired, 1)))
}

func TestNewModeSynthesizesPlace(t *testing.T) {
	s, _ := newTestStandardizer(t)
	ctx := context.Background()

	res := s.Resolve(ctx, "Oak Hollow Cemetery, Sangamon, Illinois", "", ModeNew, 3)
	require.Len(t, res, 1)
	assert.Equal(t, "Oak Hollow Cemetery", res[0].Place.Name)
	assert.Equal(t, 20, res[0].Place.LocatedIn)
	assert.Zero(t, res[0].Place.ID)
	assert.Zero(t, res[0].Score)

	res = s.Resolve(ctx, "sugar creek TOWNSHIP, Sangamon, Illinois", "", ModeNew, 1)
	require.Len(t, res, 1)
	assert.Equal(t, "Sugar Creek", res[0].Place.Name)

	// 最具体层级已匹配时与 ModeBest 相同
	res = s.Resolve(ctx, "Springfield, Sangamon, Illinois", "", ModeNew, 1)
	assert.Equal(t, []int{30}, ids(res))
}

func TestBackoffInsertsLevel(t *testing.T) {
	s, rec := newTestStandardizer(t)
	ctx := context.Background()

	assert.Equal(t, []int{30}, ids(s.Resolve(ctx, "Springfield Illinois", "", ModeRequired, 1)))
	assert.Empty(t, rec.Diagnostics())

	// 噪声词不会被推成新层级
	assert.Equal(t, []int{30}, ids(s.Resolve(ctx, "Springfield, in Illinois", "", ModeRequired, 1)))
	assert.Empty(t, rec.Diagnostics())

	// 回退插入后层级下标随之移动：未匹配的最具体层级仍能生成新地点
	res := s.Resolve(ctx, "Hollow Springfield Illinois", "", ModeNew, 1)
	require.Len(t, res, 1)
	assert.Equal(t, "Hollow", res[0].Place.Name)
	assert.Equal(t, 30, res[0].Place.LocatedIn)
}

func TestBackoffMutatesLevelsSeenByHandler(t *testing.T) {
	s, rec := newTestStandardizer(t)
	s.Resolve(context.Background(), "Atlantis Springfield Illinois", "", ModeBest, 1)
	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindTokenNotFound, diags[0].Kind)
	assert.Equal(t, [][]string{{"atlantis"}, {"springfield"}, {"illinois"}}, diags[0].Levels)
	assert.Equal(t, 0, diags[0].Level)
	assert.Equal(t, []int{30}, diags[0].IDs)
}

func TestSkippedFillerWordsStayInLevel(t *testing.T) {
	s, rec := newTestStandardizer(t)
	ctx := context.Background()

	p := s.Standardize(ctx, "Township of Oxford, Sangamon, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 20, p.ID)
	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindTokenNotFound, diags[0].Kind)
	assert.Equal(t, [][]string{{"township", "of", "oxford"}, {"sangamon"}, {"illinois"}}, diags[0].Levels)
	assert.Equal(t, 0, diags[0].Level)
	assert.Equal(t, []int{20}, diags[0].IDs)

	res := s.Resolve(ctx, "Township of Oxford, Sangamon, Illinois", "", ModeNew, 1)
	require.Len(t, res, 1)
	assert.Equal(t, "Township Of Oxford", res[0].Place.Name)
	assert.Equal(t, 20, res[0].Place.LocatedIn)
}

func TestTypeTokenFilters(t *testing.T) {
	s, rec := newTestStandardizer(t)
	ctx := context.Background()

	p := s.Standardize(ctx, "Cook County, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 21, p.ID)
	assert.Empty(t, rec.Diagnostics())

	// 缩写展开为类型词
	p = s.Standardize(ctx, "Cook Co., Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 21, p.ID)

	// 无类型 token 时保留更具体的地点
	p = s.Standardize(ctx, "Cook, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 34, p.ID)

	p = s.Standardize(ctx, "Cook Parish, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 34, p.ID)
	assert.Equal(t, 1, rec.Count(KindTypeNotFound))
}

func TestTypeWordKeptInName(t *testing.T) {
	s, _ := newTestStandardizer(t)
	p := s.Standardize(context.Background(), "Oak Ridge Cemetery, Sangamon, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 50, p.ID)
}

func TestFailedLevelKeepsState(t *testing.T) {
	s, rec := newTestStandardizer(t)
	p := s.Standardize(context.Background(), "Springfield, Oxfordshire, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 30, p.ID)
	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindTokenNotFound, diags[0].Kind)
	assert.Equal(t, []int{10}, diags[0].IDs)
}

func TestConnectorsAndBareWords(t *testing.T) {
	s, rec := newTestStandardizer(t)
	ctx := context.Background()

	p := s.Standardize(ctx, "Springfield or Chicago, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 31, p.ID)

	p = s.Standardize(ctx, "De, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 60, p.ID)

	p = s.Standardize(ctx, "Foo De, Illinois")
	require.NotNil(t, p)
	assert.Equal(t, 10, p.ID)
	assert.Equal(t, 1, rec.Count(KindTokenNotFound))
}

func TestOnlyFirstDiagnosticIsReported(t *testing.T) {
	s, rec := newTestStandardizer(t)
	p := s.Standardize(context.Background(), "Cook Parish, Nowhere, Illinois")
	require.NotNil(t, p)
	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindTokenNotFound, diags[0].Kind)
}

func TestDeterministic(t *testing.T) {
	s, _ := newTestStandardizer(t)
	first := s.Resolve(context.Background(), "Springfield", "", ModeBest, 5)
	require.Len(t, first, 2)
	assert.Equal(t, 30, first[0].Place.ID, "equal scores break ties by lower id")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, ids(first), ids(s.Resolve(context.Background(), "Springfield", "", ModeBest, 5)))
		}()
	}
	wg.Wait()
}

func TestHandlerGetsOwnCopyOfLevels(t *testing.T) {
	s, rec := newTestStandardizer(t)
	s.Resolve(context.Background(), "Atlantis", "", ModeBest, 1)
	diags := rec.Diagnostics()
	require.Len(t, diags, 2)
	diags[0].Levels[0][0] = "mutated"
	assert.Equal(t, "atlantis", diags[1].Levels[0][0])
}

func TestWithErrorHandlerCopies(t *testing.T) {
	s, rec := newTestStandardizer(t)
	other := &Recorder{}
	s.WithErrorHandler(other).Resolve(context.Background(), "Atlantis", "", ModeBest, 1)
	assert.Empty(t, rec.Diagnostics())
	assert.NotEmpty(t, other.Diagnostics())

	fanout := &Recorder{}
	s.WithErrorHandler(Handlers{other, fanout, MetricsHandler{}}).Resolve(context.Background(), "Atlantis", "", ModeBest, 1)
	assert.Len(t, fanout.Diagnostics(), 2)
}

type failingStore struct{}

func (failingStore) Place(context.Context, int) (*place.Place, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) Words(context.Context, string) ([]int, error) {
	return nil, errors.New("connection reset")
}

func TestBackendFailureDegrades(t *testing.T) {
	rules, err := config.Default()
	require.NoError(t, err)
	rec := &Recorder{}
	s := New(rules, failingStore{}, WithErrorHandler(rec))
	assert.Empty(t, s.Resolve(context.Background(), "Springfield, Illinois", "", ModeBest, 1))
	assert.Equal(t, 1, rec.Count(KindPlaceNotFound))
}

func TestFullNameHopLimit(t *testing.T) {
	rules, err := config.Default()
	require.NoError(t, err)
	m := mem.New()
	for i := 1; i <= 12; i++ {
		m.Add(&place.Place{ID: i, Name: fmt.Sprintf("P%d", i), LocatedIn: i - 1})
	}
	s := New(rules, m)
	ctx := context.Background()
	assert.Equal(t, "P3, P2, P1", s.FullName(ctx, s.Place(ctx, 3)))
	assert.Equal(t, "P10, P9, P8, P7, P6, P5, P4, P3, P2, P1", s.FullName(ctx, s.Place(ctx, 10)))
	assert.Equal(t, "", s.FullName(ctx, s.Place(ctx, 11)))
	assert.Equal(t, "", s.FullName(ctx, nil))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeBest, "BEST": ModeBest, "required": ModeRequired, " new ": ModeNew} {
		m, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := ParseMode("fuzzy")
	assert.Error(t, err)
	assert.Equal(t, "required", ModeRequired.String())
}

func TestCustomTokenizer(t *testing.T) {
	rules, err := config.Default()
	require.NoError(t, err)
	s := New(rules, fixtureStore(), WithTokenizer(tokenize.New()))
	assert.NotNil(t, s.Standardize(context.Background(), "Chicago, Illinois"))
}
