package models

import (
	"encoding/json"
	"fmt"
)

// NodeKind tags the Node variant.
type NodeKind string

const (
	KindItem    NodeKind = "item"
	KindFolder  NodeKind = "folder"
	KindHistory NodeKind = "history"
)

// IconType says how an item's icon is obtained and what IconData holds.
type IconType string

const (
	IconAuto   IconType = "auto"   // fetched favicon, IconData unused
	IconUpload IconType = "upload" // IconData is a data URL
	IconColor  IconType = "color"  // solid tile in Color
	IconRemote IconType = "remote" // IconData is an image URL
)

// Node is a shortcut item, a folder, or a transient history entry.
// Items use URL and the icon fields; folders use Children.
type Node struct {
	ID        string   `json:"id"`
	Kind      NodeKind `json:"type"`
	Title     string   `json:"title"`
	URL       string   `json:"url,omitempty"`
	IconType  IconType `json:"iconType,omitempty"`
	IconData  string   `json:"iconData,omitempty"`
	Color     string   `json:"color,omitempty"`
	Children  []string `json:"children,omitempty"`
	CreatedAt int64    `json:"createdAt,omitempty"`
	UpdatedAt int64    `json:"updatedAt,omitempty"`
}

func (n Node) IsFolder() bool { return n.Kind == KindFolder }

// HasInlineIcon reports whether the node carries its own icon payload.
func (n Node) HasInlineIcon() bool {
	return (n.IconType == IconUpload || n.IconType == IconRemote) && n.IconData != ""
}

func (n Node) Clone() Node {
	if n.Children != nil {
		n.Children = append([]string(nil), n.Children...)
	}
	return n
}

// UnmarshalJSON rejects unknown node kinds and fills the item icon type.
func (n *Node) UnmarshalJSON(b []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	switch p.Kind {
	case KindItem, KindHistory:
		if p.IconType == "" {
			p.IconType = IconAuto
		}
	case KindFolder:
	case "":
		// Older documents had no tag; a node with children is a folder.
		if p.Children != nil {
			p.Kind = KindFolder
		} else {
			p.Kind = KindItem
			if p.IconType == "" {
				p.IconType = IconAuto
			}
		}
	default:
		return fmt.Errorf("node %q: unknown type %q", p.ID, p.Kind)
	}
	*n = Node(p)
	return nil
}
