package similarity

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type countingLookup struct {
	calls   map[int64]int
	results map[int64][]Match
	err     error
}

func (l *countingLookup) Similar(_ context.Context, id int64) ([]Match, error) {
	if l.calls == nil {
		l.calls = map[int64]int{}
	}
	l.calls[id]++
	if l.err != nil {
		return nil, l.err
	}
	return l.results[id], nil
}

func TestCacheGetLooksUpOnce(t *testing.T) {
	lookup := &countingLookup{results: map[int64][]Match{42: {{ImageID: 7}}}}
	cache := NewCache(lookup, nil)

	for range 2 {
		got, err := cache.Get(context.Background(), 42)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if len(got) != 1 || got[0].ImageID != 7 {
			t.Fatalf("unexpected matches %v", got)
		}
	}
	if lookup.calls[42] != 1 || cache.Lookups() != 1 {
		t.Fatalf("expected exactly one lookup, got %d", lookup.calls[42])
	}
}

func TestCacheStoresEmptyResult(t *testing.T) {
	lookup := &countingLookup{}
	cache := NewCache(lookup, nil)
	for range 3 {
		got, err := cache.Get(context.Background(), 9)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected empty result, got %v %v", got, err)
		}
	}
	if lookup.calls[9] != 1 {
		t.Fatalf("empty result should be cached, got %d lookups", lookup.calls[9])
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	lookup := &countingLookup{err: errors.New("db locked")}
	cache := NewCache(lookup, nil)
	if _, err := cache.Get(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	lookup.err = nil
	if _, err := cache.Get(context.Background(), 1); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if lookup.calls[1] != 2 {
		t.Fatalf("expected errors not to be cached, got %d lookups", lookup.calls[1])
	}
}

func TestCacheReturnsCopiesAndResets(t *testing.T) {
	lookup := &countingLookup{results: map[int64][]Match{1: {{ImageID: 2}}}}
	cache := NewCache(lookup, nil)
	first, _ := cache.Get(context.Background(), 1)
	first[0].ImageID = 99
	second, _ := cache.Get(context.Background(), 1)
	if second[0].ImageID != 2 {
		t.Fatal("callers must not be able to mutate cached entries")
	}
	cache.Reset()
	if cache.Len() != 0 {
		t.Fatal("Reset should drop entries")
	}
	if _, err := cache.Get(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if lookup.calls[1] != 2 {
		t.Fatalf("expected a fresh lookup after reset, got %d", lookup.calls[1])
	}
}

func TestRankBySharedTags(t *testing.T) {
	target := Candidate{ImageID: 1, Description: "harbour at sunset with boats", Tags: []string{"sunset", "boats", "harbour"}}
	pool := []Candidate{
		{ImageID: 1, Tags: []string{"sunset"}},
		{ImageID: 2, Tags: []string{"Sunset"}, Description: "city skyline"},
		{ImageID: 3, Tags: []string{"sunset", "boats"}},
		{ImageID: 4, Tags: []string{"cats"}},
		{ImageID: 5, Tags: []string{"sunset"}, Description: "boats in a harbour at sunset"},
		{ImageID: 6, Tags: []string{"sunset"}, Description: "city skyline"},
	}

	got := Rank(target, pool, 0)
	ids := make([]int64, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.ImageID)
	}
	if want := []int64{3, 5, 2, 6}; !slices.Equal(ids, want) {
		t.Fatalf("rank order = %v, want %v", ids, want)
	}
	if !slices.Equal(got[0].SharedTags, []string{"sunset", "boats"}) {
		t.Fatalf("shared tags = %v", got[0].SharedTags)
	}

	if limited := Rank(target, pool, 2); len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

type staticSource struct {
	target Candidate
	pool   []Candidate
}

func (s staticSource) SimilarCandidates(context.Context, int64) (Candidate, []Candidate, error) {
	return s.target, s.pool, nil
}

func TestTagLookupThroughCache(t *testing.T) {
	src := staticSource{
		target: Candidate{ImageID: 1, Tags: []string{"a"}},
		pool:   []Candidate{{ImageID: 2, Tags: []string{"a"}}},
	}
	cache := NewCache(NewTagLookup(src, 6), nil)
	got, err := cache.Get(context.Background(), 1)
	if err != nil || len(got) != 1 || got[0].ImageID != 2 {
		t.Fatalf("unexpected result %v %v", got, err)
	}
}
