package paengine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/semindex/semindex/internal/scanner"
)

// treeNode is one directory or file in the bounded project-tree
// rendering. Grounded on nothing in the pack directly; C4's already-
// filtered record list (vcs-ignore and excludes already applied) is
// reused so this rendering never duplicates scanner's ignore rules.
type treeNode struct {
	name     string
	isDir    bool
	children map[string]*treeNode
	order    []string
}

func newDirNode(name string) *treeNode {
	return &treeNode{name: name, isDir: true, children: map[string]*treeNode{}}
}

func (n *treeNode) child(name string, isDir bool) *treeNode {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := &treeNode{name: name, isDir: isDir, children: map[string]*treeNode{}}
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

// renderTree builds an ASCII directory listing bounded to maxDepth
// levels and maxPerDir entries per directory, per the specification's
// "bounded project-tree rendering (depth ≤ 4, items/dir ≤ 30,
// ignored-directory set enforced)".
func renderTree(records []scanner.FileRecord, maxDepth, maxPerDir int) string {
	root := newDirNode(".")
	for _, r := range records {
		segs := splitPath(r.RelPath)
		if len(segs) == 0 {
			continue
		}
		cur := root
		for i, seg := range segs {
			isDir := i < len(segs)-1
			cur = cur.child(seg, isDir)
		}
	}

	var b strings.Builder
	writeTree(&b, root, 0, maxDepth, maxPerDir)
	return b.String()
}

func writeTree(b *strings.Builder, n *treeNode, depth, maxDepth, maxPerDir int) {
	if depth >= maxDepth {
		return
	}
	names := append([]string(nil), n.order...)
	sort.Strings(names)

	shown := names
	truncated := 0
	if len(shown) > maxPerDir {
		truncated = len(shown) - maxPerDir
		shown = shown[:maxPerDir]
	}

	for _, name := range shown {
		c := n.children[name]
		indent := strings.Repeat("  ", depth)
		if c.isDir {
			fmt.Fprintf(b, "%s%s/\n", indent, name)
			writeTree(b, c, depth+1, maxDepth, maxPerDir)
		} else {
			fmt.Fprintf(b, "%s%s\n", indent, name)
		}
	}
	if truncated > 0 {
		fmt.Fprintf(b, "%s... (%d more)\n", strings.Repeat("  ", depth), truncated)
	}
}
