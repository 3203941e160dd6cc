package library_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"curator/internal/boards"
	"curator/internal/library"
	"curator/internal/services"
	"curator/internal/similarity"
	"curator/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Path() != cfg.DatabasePath() {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = reopened.Close()
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_ = store.Close()

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 999"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := library.Open(cfg); !errors.Is(err, library.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCreateBoardAndLoadTree(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	travel := testsupport.NewBoard(t, store, "Travel", nil)
	japan := testsupport.NewBoard(t, store, "Japan", &travel)
	kyoto := testsupport.NewBoard(t, store, "Kyoto", &japan)
	food := testsupport.NewBoard(t, store, "Food", nil)

	img := testsupport.NewImage(t, store, cfg, "ramen.jpg")
	if err := store.AddMembership(ctx, food, img.ID); err != nil {
		t.Fatalf("AddMembership: %v", err)
	}
	// Adding twice is a no-op.
	if err := store.AddMembership(ctx, food, img.ID); err != nil {
		t.Fatalf("AddMembership repeat: %v", err)
	}

	tree, err := store.LoadTree(ctx)
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if tree.Count() != 4 {
		t.Fatalf("expected 4 boards, got %d", tree.Count())
	}
	if got := tree.Path(kyoto); got != "Travel / Japan / Kyoto" {
		t.Fatalf("unexpected path %q", got)
	}
	foodBoard, ok := tree.FindByID(food)
	if !ok || foodBoard.ImageCount != 1 {
		t.Fatalf("expected food board with one image, got %+v", foodBoard)
	}
}

func TestCreateBoardFailures(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := store.CreateBoard(ctx, boards.Draft{Name: "   "}); !errors.Is(err, services.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed for empty name, got %v", err)
	}
	missing := int64(404)
	_, err := store.CreateBoard(ctx, boards.Draft{Name: "Orphan", ParentID: &missing})
	if !errors.Is(err, services.ErrCreateFailed) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected create failure naming the missing parent, got %v", err)
	}
}

func TestRenameBoard(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	id := testsupport.NewBoard(t, store, "Draft", nil)

	if err := store.RenameBoard(ctx, id, "Final", "done"); err != nil {
		t.Fatalf("RenameBoard: %v", err)
	}
	rows, err := store.ListBoards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Name != "Final" || rows[0].Description != "done" {
		t.Fatalf("rename not stored: %+v", rows[0])
	}
	if err := store.RenameBoard(ctx, 999, "x", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBoardPromotesChildren(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	travel := testsupport.NewBoard(t, store, "Travel", nil)
	japan := testsupport.NewBoard(t, store, "Japan", &travel)
	kyoto := testsupport.NewBoard(t, store, "Kyoto", &japan)
	img := testsupport.NewImage(t, store, cfg, "temple.jpg")
	if err := store.AddMembership(ctx, japan, img.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteBoard(ctx, japan, false); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}
	tree, err := store.LoadTree(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := tree.FindByID(kyoto)
	if !ok || b.ParentID == nil || *b.ParentID != travel {
		t.Fatalf("expected Kyoto under Travel, got %+v", b)
	}
	got, err := store.MustGetImage(ctx, img.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.BoardIDs) != 0 {
		t.Fatalf("membership should be dropped, got %v", got.BoardIDs)
	}

	if err := store.DeleteBoard(ctx, japan, false); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteBoardCascade(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	travel := testsupport.NewBoard(t, store, "Travel", nil)
	japan := testsupport.NewBoard(t, store, "Japan", &travel)
	testsupport.NewBoard(t, store, "Kyoto", &japan)
	food := testsupport.NewBoard(t, store, "Food", nil)
	img := testsupport.NewImage(t, store, cfg, "shrine.png")
	if err := store.AddMembership(ctx, japan, img.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteBoard(ctx, travel, true); err != nil {
		t.Fatalf("DeleteBoard cascade: %v", err)
	}
	rows, err := store.ListBoards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != food {
		t.Fatalf("expected only Food to remain, got %+v", rows)
	}
	if got, _ := store.GetImage(ctx, img.ID); got == nil {
		t.Fatal("images must survive board deletion")
	}
}

func TestMergeBoards(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	src := testsupport.NewBoard(t, store, "Cats", nil)
	child := testsupport.NewBoard(t, store, "Kittens", &src)
	dst := testsupport.NewBoard(t, store, "Animals", nil)
	a := testsupport.NewImage(t, store, cfg, "a.jpg")
	b := testsupport.NewImage(t, store, cfg, "b.jpg")
	for _, m := range [][2]int64{{src, a.ID}, {src, b.ID}, {dst, b.ID}} {
		if err := store.AddMembership(ctx, m[0], m[1]); err != nil {
			t.Fatal(err)
		}
	}

	moved, err := store.MergeBoards(ctx, src, dst, false)
	if err != nil {
		t.Fatalf("MergeBoards: %v", err)
	}
	if moved != 2 {
		t.Fatalf("expected 2 images moved, got %d", moved)
	}
	onTarget, err := store.BoardImages(ctx, dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(onTarget) != 2 {
		t.Fatalf("expected both images on target, got %d", len(onTarget))
	}
	onSource, _ := store.BoardImages(ctx, src)
	if len(onSource) != 0 {
		t.Fatalf("source should be empty, got %d", len(onSource))
	}

	if _, err := store.MergeBoards(ctx, src, dst, true); err != nil {
		t.Fatalf("MergeBoards delete source: %v", err)
	}
	tree, err := store.LoadTree(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tree.FindByID(src); ok {
		t.Fatal("source should be deleted")
	}
	kittens, ok := tree.FindByID(child)
	if !ok || kittens.ParentID == nil || *kittens.ParentID != dst {
		t.Fatalf("expected Kittens under Animals, got %+v", kittens)
	}

	if _, err := store.MergeBoards(ctx, dst, dst, false); !errors.Is(err, services.ErrInvalidMergeTarget) {
		t.Fatalf("expected ErrInvalidMergeTarget, got %v", err)
	}
	if _, err := store.MergeBoards(ctx, 999, dst, false); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTreeMergeThroughStore(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	src := testsupport.NewBoard(t, store, "Old", nil)
	testsupport.NewBoard(t, store, "Child", &src)
	dst := testsupport.NewBoard(t, store, "New", nil)

	tree, err := store.LoadTree(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Merge(ctx, src, dst, true, store); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	reloaded, err := store.LoadTree(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := flattenNames(tree)
	if got := flattenNames(reloaded); !slices.Equal(got, want) {
		t.Fatalf("stored tree %v differs from in-memory tree %v", got, want)
	}
}

func flattenNames(tree *boards.Tree) []string {
	var out []string
	for _, fb := range tree.Flatten("") {
		out = append(out, fb.Label())
	}
	return out
}

func TestMembershipNotFound(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	board := testsupport.NewBoard(t, store, "Board", nil)
	img := testsupport.NewImage(t, store, cfg, "x.gif")

	if err := store.AddMembership(ctx, 999, img.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for board, got %v", err)
	}
	if err := store.AddMembership(ctx, board, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for image, got %v", err)
	}
	if err := store.RemoveMembership(ctx, board, img.ID); err != nil {
		t.Fatalf("removing a non-member should be a no-op, got %v", err)
	}
}

func TestUpdateAnalysisAndTags(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.NewImage(t, store, cfg, "one.jpg")
	second := testsupport.NewImage(t, store, cfg, "two.jpg")

	ids, err := store.UnanalyzedIDs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []int64{first.ID, second.ID}) {
		t.Fatalf("unexpected unanalyzed ids %v", ids)
	}

	if err := store.UpdateAnalysis(ctx, first.ID, " A red fox ", []string{"Fox", "animal", "fox"}); err != nil {
		t.Fatalf("UpdateAnalysis: %v", err)
	}
	got, err := store.MustGetImage(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "A red fox" || !got.Analyzed() {
		t.Fatalf("analysis not stored: %+v", got)
	}
	if !slices.Equal(got.Tags, []string{"fox", "animal"}) {
		t.Fatalf("unexpected tags %v", got.Tags)
	}

	tags, err := store.AddTags(ctx, first.ID, []string{"Animal", "forest"})
	if err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if !slices.Equal(tags, []string{"fox", "animal", "forest"}) {
		t.Fatalf("unexpected tags after add %v", tags)
	}

	ids, _ = store.UnanalyzedIDs(ctx, 10)
	if !slices.Equal(ids, []int64{second.ID}) {
		t.Fatalf("expected only the second image unanalyzed, got %v", ids)
	}

	if _, err := store.AddTags(ctx, second.ID, []string{"forest"}); err != nil {
		t.Fatal(err)
	}
	all, err := store.AllTags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0] != (library.TagCount{Name: "forest", Count: 2}) {
		t.Fatalf("unexpected tag counts %+v", all)
	}
	suggestions, err := store.TagSuggestions(ctx, "F", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(suggestions) != 2 || suggestions[0].Name != "forest" || suggestions[1].Name != "fox" {
		t.Fatalf("unexpected suggestions %+v", suggestions)
	}

	if err := store.RemoveTag(ctx, first.ID, "FOX"); err != nil {
		t.Fatal(err)
	}
	if n, err := store.PruneTags(ctx); err != nil || n != 1 {
		t.Fatalf("expected fox to be pruned, got %d %v", n, err)
	}
	if err := store.UpdateAnalysis(ctx, 999, "x", nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRelatedTagsRankByCoOccurrence(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	tagged := map[string][]string{
		"one.jpg":   {"beach", "sunset", "sea"},
		"two.jpg":   {"beach", "sea"},
		"three.jpg": {"beach", "dog"},
		"four.jpg":  {"city", "sunset"},
	}
	for _, name := range []string{"one.jpg", "two.jpg", "three.jpg", "four.jpg"} {
		img := testsupport.NewImage(t, store, cfg, name)
		if _, err := store.AddTags(ctx, img.ID, tagged[name]); err != nil {
			t.Fatalf("AddTags %s: %v", name, err)
		}
	}

	related, err := store.RelatedTags(ctx, " Beach ", 0)
	if err != nil {
		t.Fatalf("RelatedTags: %v", err)
	}
	want := []library.TagCount{{Name: "sea", Count: 2}, {Name: "dog", Count: 1}, {Name: "sunset", Count: 1}}
	if !slices.Equal(related, want) {
		t.Fatalf("related to beach = %+v, want %+v", related, want)
	}

	limited, err := store.RelatedTags(ctx, "beach", 1)
	if err != nil || len(limited) != 1 || limited[0].Name != "sea" {
		t.Fatalf("expected only sea with limit 1, got %+v %v", limited, err)
	}
	if none, err := store.RelatedTags(ctx, "unknown", 5); err != nil || len(none) != 0 {
		t.Fatalf("expected no related tags for an unused tag, got %+v %v", none, err)
	}
	if none, err := store.RelatedTags(ctx, "  ", 5); err != nil || none != nil {
		t.Fatalf("expected nil for a blank tag, got %+v %v", none, err)
	}
}

func TestSearchAndFilters(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	beach := testsupport.NewImage(t, store, cfg, "beach_day.jpg")
	city := testsupport.NewImage(t, store, cfg, "city.png")
	if err := store.UpdateAnalysis(ctx, city.ID, "Night skyline with 100% neon", []string{"urban"}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		query string
		want  []int64
	}{
		{"BEACH", []int64{beach.ID}},
		{"skyline", []int64{city.ID}},
		{"urb", []int64{city.ID}},
		{"100%", []int64{city.ID}},
		{"_day", []int64{beach.ID}},
		{"", []int64{city.ID, beach.ID}},
	}
	for _, tc := range cases {
		found, err := store.SearchImages(ctx, tc.query, 0)
		if err != nil {
			t.Fatalf("SearchImages(%q): %v", tc.query, err)
		}
		var ids []int64
		for _, img := range found {
			ids = append(ids, img.ID)
		}
		if !slices.Equal(ids, tc.want) {
			t.Fatalf("SearchImages(%q) = %v, want %v", tc.query, ids, tc.want)
		}
	}

	fav, err := store.ToggleFavorite(ctx, beach.ID)
	if err != nil || !fav {
		t.Fatalf("expected favorite on, got %v %v", fav, err)
	}
	favorites, err := store.ListImages(ctx, library.ListFilter{FavoritesOnly: true})
	if err != nil || len(favorites) != 1 || favorites[0].ID != beach.ID {
		t.Fatalf("unexpected favorites %v %v", favorites, err)
	}
	tagged, _ := store.ListImages(ctx, library.ListFilter{Tag: "Urban"})
	if len(tagged) != 1 || tagged[0].ID != city.ID {
		t.Fatalf("unexpected tag filter result %v", tagged)
	}
	if _, err := store.ToggleFavorite(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (library.Stats{Images: 2, Analyzed: 1, Favorites: 1, Tags: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSimilarCandidatesRanked(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	target := testsupport.NewImage(t, store, cfg, "target.jpg")
	near := testsupport.NewImage(t, store, cfg, "close.jpg")
	far := testsupport.NewImage(t, store, cfg, "far.jpg")
	unrelated := testsupport.NewImage(t, store, cfg, "unrelated.jpg")
	for id, tags := range map[int64][]string{
		target.ID:    {"sunset", "beach", "boats"},
		near.ID:     {"sunset", "beach"},
		far.ID:       {"boats"},
		unrelated.ID: {"cats"},
	} {
		if err := store.UpdateAnalysis(ctx, id, "", tags); err != nil {
			t.Fatal(err)
		}
	}

	cache := similarity.NewCache(similarity.NewTagLookup(store, 6), nil)
	matches, err := cache.Get(ctx, target.ID)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	var ids []int64
	for _, m := range matches {
		ids = append(ids, m.ImageID)
	}
	if !slices.Equal(ids, []int64{near.ID, far.ID}) {
		t.Fatalf("unexpected similar ids %v", ids)
	}

	if _, _, err := store.SimilarCandidates(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameImageRejectsTakenPath(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	a := testsupport.NewImage(t, store, cfg, "a.jpg")
	b := testsupport.NewImage(t, store, cfg, "b.jpg")

	if err := store.RenameImage(ctx, a.ID, b.Filepath); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	newPath := filepath.Join(cfg.Paths.LibraryDir, "renamed.jpg")
	if err := store.RenameImage(ctx, a.ID, newPath); err != nil {
		t.Fatalf("RenameImage: %v", err)
	}
	got, _ := store.MustGetImage(ctx, a.ID)
	if got.Filename != "renamed.jpg" || got.Filepath != newPath {
		t.Fatalf("rename not stored: %+v", got)
	}
}

func TestScanRegistersSupportedFiles(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	dir := filepath.Join(testsupport.BaseDir(cfg), "incoming")
	testsupport.WriteFile(t, filepath.Join(dir, "photo.JPG"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "clip.mp4"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, ".hidden.png"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "nested", "deep.png"), 10)

	flat, err := store.Scan(ctx, dir, false)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(flat.Added) != 2 || flat.Unsupported != 1 {
		t.Fatalf("unexpected flat scan result %+v", flat)
	}

	deep, err := store.Scan(ctx, dir, true)
	if err != nil {
		t.Fatalf("Scan recursive: %v", err)
	}
	if len(deep.Added) != 1 || deep.Skipped != 2 {
		t.Fatalf("unexpected recursive scan result %+v", deep)
	}

	videos := 0
	all, _ := store.ListImages(ctx, library.ListFilter{})
	for _, img := range all {
		if img.MediaType == library.MediaVideo {
			videos++
		}
	}
	if len(all) != 3 || videos != 1 {
		t.Fatalf("expected 3 entries with 1 video, got %d/%d", len(all), videos)
	}
}

func TestImportCopiesIntoLibrary(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	src := filepath.Join(testsupport.BaseDir(cfg), "downloads", "Café Night.png")
	testsupport.WriteFile(t, src, 2048)

	first, err := store.Import(ctx, src, cfg.Paths.LibraryDir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if first.Filename != "Cafe_Night.png" || first.Size != 2048 {
		t.Fatalf("unexpected import %+v", first)
	}
	second, err := store.Import(ctx, src, cfg.Paths.LibraryDir)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if second.Filename != "Cafe_Night_1.png" {
		t.Fatalf("expected collision suffix, got %q", second.Filename)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must be kept: %v", err)
	}

	if _, err := store.Import(ctx, filepath.Join(testsupport.BaseDir(cfg), "doc.txt"), cfg.Paths.LibraryDir); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for unsupported file, got %v", err)
	}
}
