package boards

// Row is a flat board record as stored.
type Row struct {
	ID          int64
	Name        string
	Description string
	ParentID    *int64
	ImageCount  int
}

// Build assembles a forest from flat rows. Sibling order follows row order.
// Rows whose parent is missing become roots, and a parent cycle is broken
// at the first row of the cycle encountered so every row appears once.
func Build(rows []Row) *Tree {
	nodes := make(map[int64]*Board, len(rows))
	parentOf := make(map[int64]int64, len(rows))
	for _, r := range rows {
		if _, dup := nodes[r.ID]; dup {
			continue
		}
		nodes[r.ID] = &Board{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			ImageCount:  r.ImageCount,
		}
		if r.ParentID != nil {
			parentOf[r.ID] = *r.ParentID
		}
	}

	isRoot := make(map[int64]bool, len(rows))
	for _, r := range rows {
		pid, hasParent := parentOf[r.ID]
		if !hasParent {
			isRoot[r.ID] = true
			continue
		}
		if _, ok := nodes[pid]; !ok {
			isRoot[r.ID] = true
		}
	}
	for _, r := range rows {
		if cycleEntry, ok := findCycle(r.ID, parentOf, isRoot); ok {
			isRoot[cycleEntry] = true
		}
	}

	tree := &Tree{}
	seen := make(map[int64]bool, len(rows))
	for _, r := range rows {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		b := nodes[r.ID]
		if isRoot[r.ID] {
			tree.roots = append(tree.roots, b)
			continue
		}
		parent := nodes[parentOf[r.ID]]
		pid := parent.ID
		b.ParentID = &pid
		parent.SubBoards = append(parent.SubBoards, b)
	}
	return tree
}

// findCycle follows parent links from id and reports the first node that
// repeats before reaching a root.
func findCycle(id int64, parentOf map[int64]int64, isRoot map[int64]bool) (int64, bool) {
	visited := map[int64]bool{}
	current := id
	for {
		if isRoot[current] {
			return 0, false
		}
		if visited[current] {
			return current, true
		}
		visited[current] = true
		next, ok := parentOf[current]
		if !ok {
			return 0, false
		}
		current = next
	}
}
