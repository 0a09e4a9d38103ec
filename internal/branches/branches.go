// Package branches reconciles competing translator submissions: it
// aggregates per-branch team and chapter-count data for display, and picks
// a single default translation per chapter to form a coherent reading
// order. Everything here is a pure function of its inputs.
package branches

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ranobe-tools/ranobe-dl/internal/models"
)

// Info is the display-ready aggregation of one translation branch.
type Info struct {
	ID           string
	Name         string
	ChapterCount int
	TeamNames    []string // sorted union of all team names seen in chapters
}

// DisplayString renders the branch for listings: the display name, the
// aggregated team set when it adds names the display name does not already
// contain, and the chapter count.
func (i *Info) DisplayString() string {
	var b strings.Builder
	b.WriteString(i.Name)

	if len(i.TeamNames) > 0 {
		nameParts := make(map[string]bool)
		for _, part := range strings.Split(i.Name, ",") {
			nameParts[strings.TrimSpace(part)] = true
		}
		extra := false
		for _, team := range i.TeamNames {
			if !nameParts[team] {
				extra = true
				break
			}
		}
		if extra {
			fmt.Fprintf(&b, " [%s]", strings.Join(i.TeamNames, ", "))
		}
	}

	fmt.Fprintf(&b, " (%d глав)", i.ChapterCount)
	return b.String()
}

// Aggregate builds the branch map for a novel: branch metadata seeded from
// the novel-level team list, chapter counts and team-name unions accumulated
// from the chapter list. Branches that no chapter references are dropped,
// which covers branches known only from stale team metadata.
func Aggregate(novel *models.Novel, chapters []models.Chapter) map[string]*Info {
	base := baseBranches(novel)
	counts := chapterCounts(chapters)
	teams := teamsByBranch(chapters)

	out := make(map[string]*Info)
	ids := make(map[string]bool, len(base)+len(counts))
	for id := range base {
		ids[id] = true
	}
	for id := range counts {
		ids[id] = true
	}

	for id := range ids {
		if counts[id] == 0 {
			continue
		}
		names := make([]string, 0, len(teams[id]))
		for name := range teams[id] {
			names = append(names, name)
		}
		slices.Sort(names)
		out[id] = &Info{
			ID:           id,
			Name:         branchDisplayName(base[id]),
			ChapterCount: counts[id],
			TeamNames:    names,
		}
	}
	return out
}

// Sorted returns the aggregates ordered by branch id (numeric-aware).
func Sorted(infos map[string]*Info) []*Info {
	out := make([]*Info, 0, len(infos))
	for _, info := range infos {
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b *Info) int {
		if c := compareNumberKeys(parseNumberKey(a.ID), parseNumberKey(b.ID)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// UniqueChapterCount counts distinct (volume, number) pairs.
func UniqueChapterCount(chapters []models.Chapter) int {
	seen := make(map[models.ChapterKey]bool, len(chapters))
	for i := range chapters {
		seen[chapters[i].Key()] = true
	}
	return len(seen)
}

// Selection pairs a chapter with the branch chosen for it.
type Selection struct {
	Chapter *models.Chapter
	Branch  *models.Branch
}

// BranchID returns the selected branch's id, "0" when the chapter's branch
// entry carried no identity.
func (s Selection) BranchID() string {
	if s.Branch == nil {
		return "0"
	}
	return s.Branch.BranchID()
}

// Filter resolves a branch choice into an ordered chapter selection:
// "default" runs the default-selection algorithm, an explicit id keeps only
// that branch's submissions, and the empty string keeps every submission.
func Filter(chapters []models.Chapter, branchID string) []Selection {
	if branchID == "default" {
		return SelectDefault(chapters)
	}

	var out []Selection
	for i := range chapters {
		ch := &chapters[i]
		for j := range ch.Branches {
			br := &ch.Branches[j]
			if branchID == "" || br.BranchID() == branchID {
				out = append(out, Selection{Chapter: ch, Branch: br})
			}
		}
	}
	sortSelections(out)
	return out
}

// SelectDefault picks exactly one translation per unique (volume, number)
// key. Chapters are walked in reading order; each pass takes the first
// branch available on the first not-yet-covered chapter and sweeps it
// forward across every later uncovered chapter it also covers. The effect
// is "pick one translator and stick with them for as long as they have
// chapters", which reads better than a global most-chapters-wins rule when
// teams partially overlap. Chapters with no branches are excluded.
func SelectDefault(chapters []models.Chapter) []Selection {
	ordered := make([]*models.Chapter, 0, len(chapters))
	for i := range chapters {
		ordered = append(ordered, &chapters[i])
	}
	slices.SortStableFunc(ordered, func(a, b *models.Chapter) int {
		if c := compareNumberKeys(parseNumberKey(string(a.Number)), parseNumberKey(string(b.Number))); c != 0 {
			return c
		}
		return a.Index - b.Index
	})

	// Per chapter key, the candidate branches in first-seen order.
	type candidates struct {
		ids  []string
		byID map[string]Selection
	}
	byKey := make(map[models.ChapterKey]*candidates)
	var keys []models.ChapterKey

	for _, ch := range ordered {
		key := ch.Key()
		cand, ok := byKey[key]
		if !ok {
			cand = &candidates{byID: make(map[string]Selection)}
			byKey[key] = cand
			keys = append(keys, key)
		}
		for j := range ch.Branches {
			br := &ch.Branches[j]
			id := br.BranchID()
			if _, dup := cand.byID[id]; !dup {
				cand.ids = append(cand.ids, id)
				cand.byID[id] = Selection{Chapter: ch, Branch: br}
			}
		}
	}

	selected := make(map[models.ChapterKey]bool, len(keys))
	var out []Selection

	for len(selected) < len(keys) {
		// The prioritized branch for this pass: first branch of the first
		// uncovered chapter that has any.
		prioritized := ""
		for _, key := range keys {
			if selected[key] {
				continue
			}
			if cand := byKey[key]; len(cand.ids) > 0 {
				prioritized = cand.ids[0]
				break
			}
		}
		if prioritized == "" {
			break // every remaining chapter has no branches
		}

		for _, key := range keys {
			if selected[key] {
				continue
			}
			if sel, ok := byKey[key].byID[prioritized]; ok {
				out = append(out, sel)
				selected[key] = true
			}
		}
	}

	sortSelections(out)
	return out
}

// sortSelections orders selections by the numeric-aware chapter number,
// breaking ties with the original source index.
func sortSelections(sels []Selection) {
	slices.SortStableFunc(sels, func(a, b Selection) int {
		if c := compareNumberKeys(
			parseNumberKey(string(a.Chapter.Number)),
			parseNumberKey(string(b.Chapter.Number)),
		); c != 0 {
			return c
		}
		return a.Chapter.Index - b.Chapter.Index
	})
}

// baseBranch is branch metadata known from the novel-level team list.
type baseBranch struct {
	teams       []models.Team
	activeTeams []models.Team
}

// baseBranches extracts branch/team bindings from the novel info. Branch
// "0" is always present even when no team references it.
func baseBranches(novel *models.Novel) map[string]*baseBranch {
	out := make(map[string]*baseBranch)
	if novel != nil {
		for _, team := range novel.Teams {
			id := team.BranchID()
			b, ok := out[id]
			if !ok {
				b = &baseBranch{}
				out[id] = b
			}
			b.teams = append(b.teams, team)
			if team.Details != nil && team.Details.IsActive {
				b.activeTeams = append(b.activeTeams, team)
			}
		}
	}
	if _, ok := out["0"]; !ok {
		out["0"] = &baseBranch{}
	}
	return out
}

// chapterCounts counts chapter occurrences per branch id. Every branch
// entry counts, including bare ids and nulls (both normalize to an id).
func chapterCounts(chapters []models.Chapter) map[string]int {
	counts := make(map[string]int)
	for i := range chapters {
		for j := range chapters[i].Branches {
			counts[chapters[i].Branches[j].BranchID()]++
		}
	}
	return counts
}

// teamsByBranch unions team names per branch across all chapters. Only full
// branch records carry team data; those without any yield the sentinel.
func teamsByBranch(chapters []models.Chapter) map[string]map[string]bool {
	teams := make(map[string]map[string]bool)
	for i := range chapters {
		for j := range chapters[i].Branches {
			br := &chapters[i].Branches[j]
			names := br.TeamNames()
			if names == nil {
				continue
			}
			id := br.BranchID()
			set, ok := teams[id]
			if !ok {
				set = make(map[string]bool)
				teams[id] = set
			}
			for _, name := range names {
				set[name] = true
			}
		}
	}
	return teams
}

// branchDisplayName picks the branch's display name: active teams joined
// with ", ", else the lowest-id team's name, else the unknown sentinel.
func branchDisplayName(base *baseBranch) string {
	if base == nil {
		return models.UnknownTeam
	}
	if len(base.activeTeams) > 0 {
		names := make([]string, len(base.activeTeams))
		for i, t := range base.activeTeams {
			names[i] = t.Name
		}
		return strings.Join(names, ", ")
	}
	if len(base.teams) > 0 {
		min := base.teams[0]
		for _, t := range base.teams[1:] {
			if t.ID < min.ID {
				min = t
			}
		}
		return min.Name
	}
	return models.UnknownTeam
}
