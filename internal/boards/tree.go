package boards

import (
	"fmt"
	"strings"

	"curator/internal/services"
)

// IndentUnit is appended to the flatten prefix once per depth level.
const IndentUnit = "  "

// Board is one node of the board forest. SubBoards are owned exclusively by
// their parent. ParentID mirrors the owner for display and storage only;
// structural edits go through Tree.
type Board struct {
	ID          int64
	Name        string
	Description string
	ParentID    *int64
	SubBoards   []*Board
	ImageCount  int
}

// Draft describes a board that has not been created yet.
type Draft struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	ParentID    *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

// FlatBoard pairs a board with its pre-order position in the forest.
type FlatBoard struct {
	Board  *Board
	Prefix string
	Depth  int
}

// Label renders the board name indented by its prefix.
func (f FlatBoard) Label() string {
	return f.Prefix + f.Board.Name
}

// Tree is an ordered forest of boards. Tree is not safe for concurrent use.
type Tree struct {
	roots []*Board
}

// New returns a tree owning the given roots in order.
func New(roots ...*Board) *Tree {
	t := &Tree{roots: append([]*Board(nil), roots...)}
	for _, root := range t.roots {
		root.ParentID = nil
		relinkParents(root)
	}
	return t
}

// Roots returns the top-level boards in order. The slice is a copy; the
// boards are shared.
func (t *Tree) Roots() []*Board {
	return append([]*Board(nil), t.roots...)
}

// Count returns the number of boards in the forest.
func (t *Tree) Count() int {
	n := 0
	walk(t.roots, func(*Board, int) { n++ })
	return n
}

// FindByID performs a depth-first search across the roots and their
// sub-boards.
func (t *Tree) FindByID(id int64) (*Board, bool) {
	b, _, _ := t.locate(id)
	return b, b != nil
}

// DescendantIDs returns every id reachable below id, excluding id itself.
// Unknown ids and leaves yield an empty set.
func (t *Tree) DescendantIDs(id int64) map[int64]struct{} {
	out := make(map[int64]struct{})
	b, ok := t.FindByID(id)
	if !ok {
		return out
	}
	walk(b.SubBoards, func(child *Board, _ int) {
		out[child.ID] = struct{}{}
	})
	return out
}

// Flatten lists every board in pre-order. prefix leads every entry once and
// is never repeated; only IndentUnit grows with depth, so a board at depth d
// gets prefix + d copies of IndentUnit. Flatten("") yields 2*d spaces.
func (t *Tree) Flatten(prefix string) []FlatBoard {
	out := make([]FlatBoard, 0, t.Count())
	walk(t.roots, func(b *Board, depth int) {
		out = append(out, FlatBoard{
			Board:  b,
			Prefix: prefix + strings.Repeat(IndentUnit, depth),
			Depth:  depth,
		})
	})
	return out
}

// Path renders the ancestor chain of id joined by " / ". Returns "" for
// unknown ids.
func (t *Tree) Path(id int64) string {
	var names []string
	var visit func(nodes []*Board) bool
	visit = func(nodes []*Board) bool {
		for _, b := range nodes {
			names = append(names, b.Name)
			if b.ID == id || visit(b.SubBoards) {
				return true
			}
			names = names[:len(names)-1]
		}
		return false
	}
	if !visit(t.roots) {
		return ""
	}
	return strings.Join(names, " / ")
}

// Insert attaches a newly created board under its ParentID, or as the last
// root when ParentID is nil.
func (t *Tree) Insert(b *Board) error {
	if b == nil {
		return services.Wrap(services.ErrValidation, "boards", "insert", "nil board", nil)
	}
	if _, ok := t.FindByID(b.ID); ok {
		return services.Wrap(services.ErrValidation, "boards", "insert", fmt.Sprintf("board %d already present", b.ID), nil)
	}
	relinkParents(b)
	if b.ParentID == nil {
		t.roots = append(t.roots, b)
		return nil
	}
	parent, ok := t.FindByID(*b.ParentID)
	if !ok {
		return notFound("insert", *b.ParentID)
	}
	parent.SubBoards = append(parent.SubBoards, b)
	return nil
}

// Rename updates a board's name and description. Ownership never changes.
func (t *Tree) Rename(id int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return services.Wrap(services.ErrValidation, "boards", "rename", "name is required", nil)
	}
	b, ok := t.FindByID(id)
	if !ok {
		return notFound("rename", id)
	}
	b.Name = name
	b.Description = strings.TrimSpace(description)
	return nil
}

// locate returns the board, its parent (nil for roots), and its index in the
// owning slice.
func (t *Tree) locate(id int64) (*Board, *Board, int) {
	var search func(nodes []*Board, parent *Board) (*Board, *Board, int)
	search = func(nodes []*Board, parent *Board) (*Board, *Board, int) {
		for i, b := range nodes {
			if b.ID == id {
				return b, parent, i
			}
			if found, p, idx := search(b.SubBoards, b); found != nil {
				return found, p, idx
			}
		}
		return nil, nil, -1
	}
	return search(t.roots, nil)
}

// detach removes the board from its owning slice and returns it with its
// former parent.
func (t *Tree) detach(id int64) (*Board, *Board, bool) {
	b, parent, idx := t.locate(id)
	if b == nil {
		return nil, nil, false
	}
	if parent == nil {
		t.roots = removeAt(t.roots, idx)
	} else {
		parent.SubBoards = removeAt(parent.SubBoards, idx)
	}
	return b, parent, true
}

func walk(nodes []*Board, fn func(b *Board, depth int)) {
	var visit func(nodes []*Board, depth int)
	visit = func(nodes []*Board, depth int) {
		for _, b := range nodes {
			fn(b, depth)
			visit(b.SubBoards, depth+1)
		}
	}
	visit(nodes, 0)
}

func relinkParents(b *Board) {
	for _, child := range b.SubBoards {
		id := b.ID
		child.ParentID = &id
		relinkParents(child)
	}
}

func removeAt(nodes []*Board, idx int) []*Board {
	out := make([]*Board, 0, len(nodes)-1)
	out = append(out, nodes[:idx]...)
	return append(out, nodes[idx+1:]...)
}

func notFound(operation string, id int64) error {
	return services.Wrap(services.ErrNotFound, "boards", operation, fmt.Sprintf("board %d", id), nil)
}
