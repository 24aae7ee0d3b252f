package domain

import "time"

// NodeKind identifies the three node types sharing the hierarchy structure.
type NodeKind string

const (
	NodeKindLevel   NodeKind = "level"
	NodeKindSection NodeKind = "section"
	NodeKindContent NodeKind = "content"
)

// HierarchyNode is one Level, Section or Content row of a course tree.
// OrderKey is strictly ordered within a live sibling set and never reused;
// soft-deleted nodes drop out of ordering and gating but stay around so that
// historical attempts and point transactions keep a valid reference.
type HierarchyNode struct {
	ID               string
	CourseID         string
	ParentID         string // empty for levels (course is the parent)
	Kind             NodeKind
	Title            string
	OrderKey         int
	IsVisible        bool
	IsDeleted        bool
	RequiresPrevious bool // previous sibling must be completed first
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewHierarchyNode creates a new visible HierarchyNode instance
func NewHierarchyNode(courseID, parentID string, kind NodeKind, title string, orderKey int) *HierarchyNode {
	now := time.Now()
	return &HierarchyNode{
		CourseID:  courseID,
		ParentID:  parentID,
		Kind:      kind,
		Title:     title,
		OrderKey:  orderKey,
		IsVisible: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate validates the node
func (n *HierarchyNode) Validate() error {
	if n.CourseID == "" {
		return NewError(CodeValidation, "course ID is required", nil)
	}
	if n.Kind != NodeKindLevel && n.Kind != NodeKindSection && n.Kind != NodeKindContent {
		return NewError(CodeValidation, "unknown node kind", nil)
	}
	if n.Kind != NodeKindLevel && n.ParentID == "" {
		return NewError(CodeValidation, "parent ID is required for sections and content", nil)
	}
	return nil
}

// Reachable reports whether the node takes part in ordering and gating at all.
func (n *HierarchyNode) Reachable() bool {
	return n.IsVisible && !n.IsDeleted
}

// PreviousSibling returns the closest live sibling that precedes node within
// the ordered sibling set, or nil if node is first. siblings may arrive in any
// order and may include deleted or invisible rows; both are skipped.
func PreviousSibling(node *HierarchyNode, siblings []*HierarchyNode) *HierarchyNode {
	var prev *HierarchyNode
	for _, s := range siblings {
		if s.ID == node.ID || !s.Reachable() {
			continue
		}
		if s.OrderKey < node.OrderKey && (prev == nil || s.OrderKey > prev.OrderKey) {
			prev = s
		}
	}
	return prev
}

// NextSibling returns the closest live sibling that follows node, or nil.
func NextSibling(node *HierarchyNode, siblings []*HierarchyNode) *HierarchyNode {
	var next *HierarchyNode
	for _, s := range siblings {
		if s.ID == node.ID || !s.Reachable() {
			continue
		}
		if s.OrderKey > node.OrderKey && (next == nil || s.OrderKey < next.OrderKey) {
			next = s
		}
	}
	return next
}

// FirstSibling returns the live sibling with the lowest order key, or nil.
func FirstSibling(siblings []*HierarchyNode) *HierarchyNode {
	var first *HierarchyNode
	for _, s := range siblings {
		if !s.Reachable() {
			continue
		}
		if first == nil || s.OrderKey < first.OrderKey {
			first = s
		}
	}
	return first
}
