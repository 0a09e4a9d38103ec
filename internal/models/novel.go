// Package models defines the RanobeLIB API data model.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UnknownTeam is the fallback team name used when a branch carries no team
// metadata. The sentinel matches the site's own placeholder.
const UnknownTeam = "Неизвестный"

// FlexString decodes a JSON value that may arrive as either a string or a
// number. Chapter volumes and numbers are strings in most responses but raw
// numbers in some ("12.5", 3, "3-1" all occur).
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Novel holds the novel-level metadata returned by the info endpoint.
type Novel struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	RusName           string   `json:"rus_name"`
	EngName           string   `json:"eng_name"`
	Slug              string   `json:"slug"`
	SlugURL           string   `json:"slug_url"`
	Summary           string   `json:"summary"`
	ReleaseDateString string   `json:"releaseDateString"`
	Teams             []Team   `json:"teams"`
	Authors           []Named  `json:"authors"`
	Genres            []Named  `json:"genres"`
	Tags              []Named  `json:"tags"`
	Cover             *Cover   `json:"cover"`
	Status            *Named   `json:"status"`
}

// SlugRef returns the canonical slug used in API paths, preferring slug_url.
func (n *Novel) SlugRef() string {
	if n.SlugURL != "" {
		return n.SlugURL
	}
	return fmt.Sprintf("%d--%s", n.ID, n.Slug)
}

// Title returns the preferred display title (russian, english, then native).
func (n *Novel) Title() string {
	switch {
	case n.RusName != "":
		return n.RusName
	case n.EngName != "":
		return n.EngName
	default:
		return n.Name
	}
}

// Named is a generic {id, name} record (authors, genres, tags, status).
type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Cover holds novel cover image URLs.
type Cover struct {
	Default string `json:"default"`
	Thumb   string `json:"thumbnail"`
}

// Team is a translator team reference. At the novel level it carries
// per-novel Details (branch binding and activity flag); inside a chapter
// branch only ID and Name are populated.
type Team struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	Details *TeamDetails `json:"details"`
}

// TeamDetails binds a novel-level team to a translation branch.
type TeamDetails struct {
	BranchID *int64 `json:"branch_id"`
	IsActive bool   `json:"is_active"`
}

// BranchID returns the team's branch id as a string, "0" when unbound.
func (t *Team) BranchID() string {
	if t.Details == nil || t.Details.BranchID == nil {
		return "0"
	}
	return strconv.FormatInt(*t.Details.BranchID, 10)
}

// Chapter is one entry of the chapter list, identified by (volume, number).
// Volume and number stay strings: values like "12.5" and "3-1" occur and
// must not be forced through numeric parsing.
type Chapter struct {
	Index    int        `json:"index"`
	Volume   FlexString `json:"volume"`
	Number   FlexString `json:"number"`
	Name     string     `json:"name"`
	Branches []Branch   `json:"branches"`
}

// Key returns the (volume, number) identity of the chapter.
func (c *Chapter) Key() ChapterKey {
	return ChapterKey{Volume: volumeOrZero(c.Volume), Number: volumeOrZero(c.Number)}
}

func volumeOrZero(s FlexString) string {
	if s == "" {
		return "0"
	}
	return string(s)
}

// ChapterKey identifies a chapter by volume and number.
type ChapterKey struct {
	Volume string
	Number string
}

func (k ChapterKey) String() string { return k.Volume + "/" + k.Number }

// BranchKind tags which of the wire shapes a Branch was decoded from.
type BranchKind int

const (
	// BranchUnidentified is a null entry in a chapter's branch list.
	BranchUnidentified BranchKind = iota
	// BranchWithID is a bare scalar id with no further metadata.
	BranchWithID
	// BranchFull is a complete branch object.
	BranchFull
)

// Branch is one translation submission for a chapter. The API serializes
// branches in three shapes — null, a bare id, or a full object — so all
// normalization happens here, once, at the decode boundary.
type Branch struct {
	Kind             BranchKind
	ID               string
	Teams            []Team
	Team             *Team
	ModerationStatus string
}

// branchWire mirrors the full-object wire shape.
type branchWire struct {
	BranchID         *json.Number `json:"branch_id"`
	Teams            []Team       `json:"teams"`
	Team             *Team        `json:"team"`
	ModerationStatus string       `json:"moderation_status"`
}

// UnmarshalJSON implements json.Unmarshaler, accepting null, a scalar id,
// or a branch object.
func (b *Branch) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Branch{Kind: BranchUnidentified, ID: "0"}
		return nil
	}
	if data[0] == '{' {
		var w branchWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		id := "0"
		if w.BranchID != nil {
			id = w.BranchID.String()
		}
		*b = Branch{
			Kind:             BranchFull,
			ID:               id,
			Teams:            w.Teams,
			Team:             w.Team,
			ModerationStatus: w.ModerationStatus,
		}
		return nil
	}
	var id FlexString
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("branch: expected null, id or object: %w", err)
	}
	*b = Branch{Kind: BranchWithID, ID: string(id)}
	return nil
}

// BranchID returns the branch id, "0" when absent.
func (b *Branch) BranchID() string {
	if b.ID == "" {
		return "0"
	}
	return b.ID
}

// TeamNames returns the team names attached to this branch: the teams list
// when present, else the single fallback team, else the unknown sentinel.
// Only full branch objects carry team data.
func (b *Branch) TeamNames() []string {
	if b.Kind != BranchFull {
		return nil
	}
	if len(b.Teams) > 0 {
		names := make([]string, 0, len(b.Teams))
		for _, t := range b.Teams {
			name := t.Name
			if name == "" {
				name = UnknownTeam
			}
			names = append(names, name)
		}
		return names
	}
	if b.Team != nil && b.Team.Name != "" {
		return []string{b.Team.Name}
	}
	return []string{UnknownTeam}
}

// ChapterContent is the body of one chapter as returned by the chapter
// endpoint. Content is kept as a raw JSON document; turning the content
// tree into HTML is the renderer's job, not the API layer's.
type ChapterContent struct {
	ID          int64           `json:"id"`
	Volume      FlexString      `json:"volume"`
	Number      FlexString      `json:"number"`
	Name        string          `json:"name"`
	Content     json.RawMessage `json:"content"`
	Attachments []Attachment    `json:"attachments"`
}

// Attachment is an image embedded in a chapter body.
type Attachment struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// FileName returns the name to store the attachment under.
func (a *Attachment) FileName() string {
	if a.Filename != "" {
		return a.Filename
	}
	return a.Name
}

// User is the authenticated user's identity from the auth/me endpoint.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
