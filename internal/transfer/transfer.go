// Package transfer imports and exports whole homepage documents.
//
// Imports are validated against an embedded JSON schema and applied to a
// copy of the live document, so a rejected payload changes nothing.
package transfer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/models"
)

//go:embed schema/import.json
var importSchema []byte

const schemaURL = "https://homepage.local/schema/import.json"

// Strategy decides how an import combines with the live document.
type Strategy string

const (
	// Replace swaps in the imported document. The payload must carry
	// schemaVersion.
	Replace Strategy = "replace"
	// Merge unions groups and nodes; imported entries win on id clashes.
	Merge Strategy = "merge"
	// AddOnly inserts only groups and nodes whose ids are new.
	AddOnly Strategy = "add-only"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case Replace, Merge, AddOnly:
		return st, nil
	default:
		return "", fmt.Errorf("unknown import strategy %q", s)
	}
}

// Report counts what an import changed.
type Report struct {
	Strategy      Strategy
	AddedNodes    int
	UpdatedNodes  int
	AddedGroups   int
	UpdatedGroups int
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(importSchema))
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks raw against the import schema. For Replace it also
// requires schemaVersion.
func Validate(raw []byte, st Strategy) error {
	sch, err := schema()
	if err != nil {
		return fmt.Errorf("import schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrMalformedImport, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %w", common.ErrMalformedImport, err)
	}
	if st == Replace {
		if obj, _ := inst.(map[string]any); obj["schemaVersion"] == nil {
			return fmt.Errorf("%w: replace needs schemaVersion", common.ErrMalformedImport)
		}
	}
	return nil
}

// Import returns a new document combining cur with raw by st. cur is
// never modified. The caller backs up and persists.
func Import(cur *models.Document, raw []byte, st Strategy, now time.Time) (*models.Document, Report, error) {
	if _, err := ParseStrategy(string(st)); err != nil {
		return nil, Report{}, err
	}
	if err := Validate(raw, st); err != nil {
		return nil, Report{}, err
	}

	in := models.Document{Settings: models.DefaultSettings()}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, Report{}, fmt.Errorf("%w: %w", common.ErrMalformedImport, err)
	}
	if err := normalizeIncoming(&in, now); err != nil {
		return nil, Report{}, err
	}

	rep := Report{Strategy: st}
	var out *models.Document
	switch st {
	case Replace:
		out = replace(cur, &in, &rep)
	case Merge:
		out = merge(cur, &in, &rep, true)
	case AddOnly:
		out = merge(cur, &in, &rep, false)
	}

	document.NormalizeOwnership(out)
	adoptOrphans(out)
	return out, rep, nil
}

// Export serializes the full document.
func Export(d *models.Document) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return b, nil
}

// normalizeIncoming drops history nodes, fills ids and missing
// timestamps, and normalizes item URLs.
func normalizeIncoming(in *models.Document, now time.Time) error {
	ts := now.UnixMilli()
	for id, n := range in.Nodes {
		if n.Kind == models.KindHistory {
			delete(in.Nodes, id)
			continue
		}
		n.ID = id
		if n.CreatedAt == 0 {
			n.CreatedAt = ts
		}
		if n.UpdatedAt == 0 {
			n.UpdatedAt = n.CreatedAt
		}
		if n.Kind == models.KindItem {
			u, err := document.NormalizeURL(n.URL)
			if err != nil {
				return fmt.Errorf("%w: node %s: %w", common.ErrMalformedImport, id, err)
			}
			n.URL = u
		}
		in.Nodes[id] = n
	}
	for i := range in.Groups {
		if in.Groups[i].Nodes == nil {
			in.Groups[i].Nodes = []string{}
		}
	}
	return nil
}

// replace takes the imported document whole. The live backups, the sync
// setting of this device and the timestamp carry over so the next save
// stamps it forward.
func replace(cur, in *models.Document, rep *Report) *models.Document {
	out := document.Migrate(document.ApplyDefaults(in.Clone()))
	out.Backups = cur.Clone().Backups
	out.Settings.SyncEnabled = cur.Settings.SyncEnabled
	out.LastUpdated = cur.LastUpdated
	rep.AddedNodes = len(out.Nodes)
	rep.AddedGroups = len(out.Groups)
	return out
}

// merge folds in into a copy of cur. With overwrite, clashing ids take
// the imported value; without it they are left alone.
func merge(cur, in *models.Document, rep *Report, overwrite bool) *models.Document {
	out := cur.Clone()

	for _, id := range sortedKeys(in.Nodes) {
		n := in.Nodes[id]
		_, exists := out.Nodes[id]
		switch {
		case !exists:
			out.Nodes[id] = n
			rep.AddedNodes++
		case overwrite:
			out.Nodes[id] = n
			rep.UpdatedNodes++
		}
	}

	nextOrder := 0
	for _, g := range out.Groups {
		nextOrder = max(nextOrder, g.Order+1)
	}
	for _, g := range document.SortedGroups(in) {
		existing := out.Group(g.ID)
		switch {
		case existing == nil:
			g.Order = nextOrder
			nextOrder++
			out.Groups = append(out.Groups, g.Clone())
			rep.AddedGroups++
		case overwrite:
			existing.Name = g.Name
			existing.Nodes = slices.Clone(g.Nodes)
			rep.UpdatedGroups++
		default:
			// Keep the group but take in node ids that were new.
			for _, id := range g.Nodes {
				if _, had := cur.Nodes[id]; !had && !slices.Contains(existing.Nodes, id) {
					existing.Nodes = append(existing.Nodes, id)
				}
			}
		}
	}
	return out
}

// adoptOrphans appends nodes that ended up in no container to the first
// group, so an import never leaves a node unreachable.
func adoptOrphans(d *models.Document) {
	contained := map[string]bool{}
	for _, g := range d.Groups {
		for _, id := range g.Nodes {
			contained[id] = true
		}
	}
	for _, n := range d.Nodes {
		for _, c := range n.Children {
			contained[c] = true
		}
	}
	first := document.SortedGroups(d)[0].ID
	for _, id := range sortedKeys(d.Nodes) {
		if !contained[id] {
			g := d.Group(first)
			g.Nodes = append(g.Nodes, id)
		}
	}
}

func sortedKeys(m map[string]models.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
