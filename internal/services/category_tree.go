package services

import (
	"sort"

	"glyke/internal/models"
)

// categoryForest is an adjacency view of the category table. Children of
// each node are kept sorted by name so that walks are deterministic.
type categoryForest struct {
	byID     map[uint]*models.Category
	children map[uint][]uint
	roots    []uint
}

func newCategoryForest(categories []models.Category) *categoryForest {
	f := &categoryForest{
		byID:     make(map[uint]*models.Category, len(categories)),
		children: make(map[uint][]uint),
	}
	for i := range categories {
		c := &categories[i]
		f.byID[c.ID] = c
	}
	for i := range categories {
		c := &categories[i]
		if c.ParentID == nil || f.byID[*c.ParentID] == nil {
			f.roots = append(f.roots, c.ID)
			continue
		}
		f.children[*c.ParentID] = append(f.children[*c.ParentID], c.ID)
	}
	f.sortByName(f.roots)
	for id := range f.children {
		f.sortByName(f.children[id])
	}
	return f
}

func (f *categoryForest) sortByName(ids []uint) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := f.byID[ids[i]], f.byID[ids[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// activePreorder lists active categories in pre-order, visiting roots and
// siblings by name. Inactive nodes hide their whole subtree.
func (f *categoryForest) activePreorder() []uint {
	order := make([]uint, 0, len(f.byID))
	stack := make([]uint, 0, len(f.roots))
	for i := len(f.roots) - 1; i >= 0; i-- {
		stack = append(stack, f.roots[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f.byID[id].IsActive {
			continue
		}
		order = append(order, id)
		kids := f.children[id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return order
}

// orderingIndexes maps every category to its wanted ordering index; 0 means
// the category is not listed.
func (f *categoryForest) orderingIndexes() map[uint]int {
	want := make(map[uint]int, len(f.byID))
	for id := range f.byID {
		want[id] = 0
	}
	for i, id := range f.activePreorder() {
		want[id] = i + 1
	}
	return want
}

// descendants returns every node below id, breadth first.
func (f *categoryForest) descendants(id uint) []uint {
	var out []uint
	queue := append([]uint(nil), f.children[id]...)
	seen := map[uint]bool{id: true}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, f.children[next]...)
	}
	return out
}
