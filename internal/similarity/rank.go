package similarity

import (
	"cmp"
	"context"
	"slices"

	"curator/internal/textutil"
)

// Candidate is an image considered for ranking.
type Candidate struct {
	ImageID     int64
	Filename    string
	Description string
	Tags        []string
}

// CandidateSource loads the target image and every other image sharing at
// least one tag with it.
type CandidateSource interface {
	SimilarCandidates(ctx context.Context, id int64) (Candidate, []Candidate, error)
}

// Rank orders pool by the number of tags shared with target, breaking ties
// by description similarity and then by id. Images sharing no tag, and the
// target itself, are dropped. limit <= 0 means no limit.
func Rank(target Candidate, pool []Candidate, limit int) []Match {
	targetTags := make(map[string]struct{}, len(target.Tags))
	for _, tag := range textutil.NormalizeTags(target.Tags) {
		targetTags[tag] = struct{}{}
	}
	targetPrint := textutil.NewFingerprint(target.Description)

	matches := make([]Match, 0, len(pool))
	for _, c := range pool {
		if c.ImageID == target.ImageID {
			continue
		}
		var shared []string
		for _, tag := range textutil.NormalizeTags(c.Tags) {
			if _, ok := targetTags[tag]; ok {
				shared = append(shared, tag)
			}
		}
		if len(shared) == 0 {
			continue
		}
		matches = append(matches, Match{
			ImageID:    c.ImageID,
			Filename:   c.Filename,
			SharedTags: shared,
			TextScore:  textutil.CosineSimilarity(targetPrint, textutil.NewFingerprint(c.Description)),
		})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		if n := cmp.Compare(len(b.SharedTags), len(a.SharedTags)); n != 0 {
			return n
		}
		if n := cmp.Compare(b.TextScore, a.TextScore); n != 0 {
			return n
		}
		return cmp.Compare(a.ImageID, b.ImageID)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// NewTagLookup ranks candidates from src by shared tags.
func NewTagLookup(src CandidateSource, limit int) Lookup {
	return LookupFunc(func(ctx context.Context, id int64) ([]Match, error) {
		target, pool, err := src.SimilarCandidates(ctx, id)
		if err != nil {
			return nil, err
		}
		return Rank(target, pool, limit), nil
	})
}
