package branches

import (
	"testing"

	"github.com/ranobe-tools/ranobe-dl/internal/models"
)

// chapterWith builds a chapter whose branches are full records with the
// given ids and no team data.
func chapterWith(index int, volume, number string, branchIDs ...string) models.Chapter {
	ch := models.Chapter{
		Index:  index,
		Volume: models.FlexString(volume),
		Number: models.FlexString(number),
	}
	for _, id := range branchIDs {
		ch.Branches = append(ch.Branches, models.Branch{Kind: models.BranchFull, ID: id})
	}
	return ch
}

func novelWithTeam(name string, branchID int64, active bool, teamID int64) *models.Novel {
	return &models.Novel{
		Teams: []models.Team{{
			ID:   teamID,
			Name: name,
			Details: &models.TeamDetails{
				BranchID: &branchID,
				IsActive: active,
			},
		}},
	}
}

// TestAggregateCountsAndTeams verifies the aggregation example: one active
// novel-level team on branch "5", three chapters contributing branch "5"
// with teams Alpha and Beta.
func TestAggregateCountsAndTeams(t *testing.T) {
	novel := novelWithTeam("Alpha", 5, true, 1)

	teams := []models.Team{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}}
	numbers := []string{"1", "2", "3"}
	var chapters []models.Chapter
	for i, number := range numbers {
		ch := chapterWith(i, "1", number)
		ch.Branches = []models.Branch{{Kind: models.BranchFull, ID: "5", Teams: teams}}
		chapters = append(chapters, ch)
	}

	infos := Aggregate(novel, chapters)
	info, ok := infos["5"]
	if !ok {
		t.Fatalf("Aggregate() missing branch 5, got %v", infos)
	}
	if info.ChapterCount != 3 {
		t.Errorf("ChapterCount = %d, want 3", info.ChapterCount)
	}
	if info.Name != "Alpha" {
		t.Errorf("Name = %q, want %q (active team wins)", info.Name, "Alpha")
	}
	if len(info.TeamNames) != 2 || info.TeamNames[0] != "Alpha" || info.TeamNames[1] != "Beta" {
		t.Errorf("TeamNames = %v, want [Alpha Beta]", info.TeamNames)
	}
	want := "Alpha [Alpha, Beta] (3 глав)"
	if got := info.DisplayString(); got != want {
		t.Errorf("DisplayString() = %q, want %q", got, want)
	}
}

// TestAggregateDropsBranchesWithoutChapters verifies branches known only
// from stale team metadata are not reported.
func TestAggregateDropsBranchesWithoutChapters(t *testing.T) {
	novel := novelWithTeam("Ghost", 7, true, 1)
	chapters := []models.Chapter{chapterWith(0, "1", "1", "3")}

	infos := Aggregate(novel, chapters)
	if _, ok := infos["7"]; ok {
		t.Error("Aggregate() reported branch 7, which has no chapters")
	}
	if _, ok := infos["0"]; ok {
		t.Error("Aggregate() reported branch 0, which has no chapters")
	}
	if info, ok := infos["3"]; !ok || info.ChapterCount != 1 {
		t.Errorf("Aggregate()[3] = %+v, want chapter count 1", info)
	}
}

// TestAggregateNameFallsBackToLowestIDTeam verifies the display-name
// priority when no team is active.
func TestAggregateNameFallsBackToLowestIDTeam(t *testing.T) {
	branchID := int64(9)
	novel := &models.Novel{Teams: []models.Team{
		{ID: 5, Name: "Later", Details: &models.TeamDetails{BranchID: &branchID}},
		{ID: 2, Name: "Earlier", Details: &models.TeamDetails{BranchID: &branchID}},
	}}
	chapters := []models.Chapter{chapterWith(0, "1", "1", "9")}

	infos := Aggregate(novel, chapters)
	if infos["9"] == nil || infos["9"].Name != "Earlier" {
		t.Errorf("Aggregate()[9].Name = %v, want %q", infos["9"], "Earlier")
	}
}

// TestAggregateUnknownTeamSentinel verifies branches with no team metadata
// anywhere get the sentinel name.
func TestAggregateUnknownTeamSentinel(t *testing.T) {
	chapters := []models.Chapter{chapterWith(0, "1", "1", "0")}

	infos := Aggregate(nil, chapters)
	info := infos["0"]
	if info == nil {
		t.Fatal("Aggregate() missing branch 0")
	}
	if info.Name != models.UnknownTeam {
		t.Errorf("Name = %q, want sentinel %q", info.Name, models.UnknownTeam)
	}
	if len(info.TeamNames) != 1 || info.TeamNames[0] != models.UnknownTeam {
		t.Errorf("TeamNames = %v, want [%s]", info.TeamNames, models.UnknownTeam)
	}
}

// TestUniqueChapterCount verifies distinct (volume, number) counting across
// duplicate translations.
func TestUniqueChapterCount(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "1", "a"),
		chapterWith(1, "1", "1", "b"),
		chapterWith(2, "1", "2", "a"),
		chapterWith(3, "2", "1", "a"),
	}
	if got := UniqueChapterCount(chapters); got != 3 {
		t.Errorf("UniqueChapterCount() = %d, want 3", got)
	}
}

// TestNumberKeyOrdering verifies the numeric-aware sort:
// "1" < "1.5" < "2" < "10".
func TestNumberKeyOrdering(t *testing.T) {
	order := []string{"1", "1.5", "2", "10"}
	for i := 0; i < len(order)-1; i++ {
		a, b := parseNumberKey(order[i]), parseNumberKey(order[i+1])
		if compareNumberKeys(a, b) >= 0 {
			t.Errorf("compareNumberKeys(%q, %q) >= 0, want < 0", order[i], order[i+1])
		}
		if compareNumberKeys(b, a) <= 0 {
			t.Errorf("compareNumberKeys(%q, %q) <= 0, want > 0", order[i+1], order[i])
		}
	}

	if compareNumberKeys(parseNumberKey("3-1"), parseNumberKey("3-2")) >= 0 {
		t.Error("3-1 should sort before 3-2")
	}
	if compareNumberKeys(parseNumberKey("3"), parseNumberKey("3.5")) >= 0 {
		t.Error("3 should sort before 3.5")
	}
}

// TestSelectDefaultOneEntryPerChapter verifies uniqueness and the exclusion
// of chapters without branches.
func TestSelectDefaultOneEntryPerChapter(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "1", "a"),
		chapterWith(1, "1", "1", "b"), // duplicate key, different branch
		chapterWith(2, "1", "2", "b"),
		chapterWith(3, "1", "3"), // no branches: excluded
	}

	sels := SelectDefault(chapters)
	if len(sels) != 2 {
		t.Fatalf("SelectDefault() returned %d selections, want 2", len(sels))
	}
	seen := make(map[models.ChapterKey]bool)
	for _, sel := range sels {
		key := sel.Chapter.Key()
		if seen[key] {
			t.Errorf("duplicate selection for chapter %v", key)
		}
		seen[key] = true
		if key == (models.ChapterKey{Volume: "1", Number: "3"}) {
			t.Error("chapter without branches was selected")
		}
	}
}

// TestSelectDefaultPrefersContiguousRuns verifies the greedy clustering:
// the first chapter's translator is kept for as long as it has chapters,
// then selection moves to whichever branch covers the next gap.
func TestSelectDefaultPrefersContiguousRuns(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "1", "a"),
		chapterWith(1, "1", "2", "a", "b"),
		chapterWith(2, "1", "3", "b"),
		chapterWith(3, "1", "4", "b"),
	}

	sels := SelectDefault(chapters)
	if len(sels) != 4 {
		t.Fatalf("SelectDefault() returned %d selections, want 4", len(sels))
	}
	want := []string{"a", "a", "b", "b"}
	for i, sel := range sels {
		if sel.BranchID() != want[i] {
			t.Errorf("selection %d: branch %q, want %q", i, sel.BranchID(), want[i])
		}
	}
}

// TestSelectDefaultOrdersNumerically verifies output ordering uses the
// numeric-aware chapter number, not lexicographic order.
func TestSelectDefaultOrdersNumerically(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "2", "a"),
		chapterWith(1, "1", "10", "a"),
		chapterWith(2, "1", "1.5", "a"),
		chapterWith(3, "1", "1", "a"),
	}

	sels := SelectDefault(chapters)
	want := []string{"1", "1.5", "2", "10"}
	if len(sels) != len(want) {
		t.Fatalf("SelectDefault() returned %d selections, want %d", len(sels), len(want))
	}
	for i, sel := range sels {
		if string(sel.Chapter.Number) != want[i] {
			t.Errorf("selection %d: number %q, want %q", i, sel.Chapter.Number, want[i])
		}
	}
}

// TestSelectDefaultDeterministic verifies two runs over identical input
// yield identical selections.
func TestSelectDefaultDeterministic(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "1", "a", "b"),
		chapterWith(1, "1", "2", "b", "a"),
		chapterWith(2, "1", "3", "c"),
		chapterWith(3, "2", "1", "a"),
	}

	first := SelectDefault(chapters)
	second := SelectDefault(chapters)
	if len(first) != len(second) {
		t.Fatalf("runs disagree on length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Chapter.Key() != second[i].Chapter.Key() || first[i].BranchID() != second[i].BranchID() {
			t.Errorf("selection %d differs between runs: %v/%s vs %v/%s",
				i, first[i].Chapter.Key(), first[i].BranchID(), second[i].Chapter.Key(), second[i].BranchID())
		}
	}
}

// TestFilterByExplicitBranch verifies explicit-branch filtering keeps only
// matching submissions, in reading order.
func TestFilterByExplicitBranch(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "2", "a", "b"),
		chapterWith(1, "1", "1", "a"),
		chapterWith(2, "1", "3", "b"),
	}

	sels := Filter(chapters, "a")
	if len(sels) != 2 {
		t.Fatalf("Filter() returned %d selections, want 2", len(sels))
	}
	if string(sels[0].Chapter.Number) != "1" || string(sels[1].Chapter.Number) != "2" {
		t.Errorf("Filter() order = [%s %s], want [1 2]", sels[0].Chapter.Number, sels[1].Chapter.Number)
	}
	for _, sel := range sels {
		if sel.BranchID() != "a" {
			t.Errorf("Filter() selected branch %q, want %q", sel.BranchID(), "a")
		}
	}
}

// TestFilterEmptyIDKeepsAllSubmissions verifies the unfiltered listing.
func TestFilterEmptyIDKeepsAllSubmissions(t *testing.T) {
	chapters := []models.Chapter{
		chapterWith(0, "1", "1", "a", "b"),
		chapterWith(1, "1", "2", "a"),
	}
	if got := len(Filter(chapters, "")); got != 3 {
		t.Errorf("Filter(\"\") returned %d selections, want 3", got)
	}
}
