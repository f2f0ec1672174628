package render

import "github.com/leapstack-labs/dbrefs/pkg/core"

// TreeNode is the recursive name/children shape consumed by the tree page.
type TreeNode struct {
	Name     string      `json:"name"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Tree converts the forest to a tree headed by a synthetic "root" node.
// An object already on the current path is emitted without children, so
// forests sharing cached instances stay finite.
func Tree(roots []*core.RefObject) *TreeNode {
	head := &TreeNode{Name: core.RootName}
	onPath := make(map[*core.RefObject]bool)
	for _, r := range roots {
		head.Children = append(head.Children, treeNode(r, onPath))
	}
	return head
}

func treeNode(obj *core.RefObject, onPath map[*core.RefObject]bool) *TreeNode {
	n := &TreeNode{Name: obj.RenderKey()}
	if onPath[obj] {
		return n
	}
	onPath[obj] = true
	for _, u := range obj.Usages {
		n.Children = append(n.Children, treeNode(u, onPath))
	}
	delete(onPath, obj)
	return n
}

// Count returns the number of nodes below and including n.
func (n *TreeNode) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}
