package cart

// Tree operations over the recursive ChildItems structure. All of them take
// the node explicitly; none rely on shared state. The invariant throughout:
// when the last child of a node is removed, ChildItems becomes nil rather
// than an empty slice, so a childless configurable line is indistinguishable
// from one that never had children.

// AddChildItems appends children to the parent's subtree. Used for
// dynamically attaching add-ons after the parent line was created.
func AddChildItems(parent *LineItem, children ...*LineItem) {
	if parent == nil || len(children) == 0 {
		return
	}
	parent.ChildItems = append(parent.ChildItems, children...)
}

// RemoveChildItem locates the child with the given commerce item id at any
// depth under root and splices it out. It reports whether a node was removed.
func RemoveChildItem(root *LineItem, commerceItemID string) bool {
	if root == nil || commerceItemID == "" {
		return false
	}
	for i, child := range root.ChildItems {
		if child.CommerceItemID == commerceItemID {
			root.ChildItems = append(root.ChildItems[:i], root.ChildItems[i+1:]...)
			if len(root.ChildItems) == 0 {
				root.ChildItems = nil
			}
			return true
		}
		if RemoveChildItem(child, commerceItemID) {
			return true
		}
	}
	return false
}

// FindChild returns the descendant of root with the given commerce item id,
// or nil. Root itself is not considered.
func FindChild(root *LineItem, commerceItemID string) *LineItem {
	if root == nil {
		return nil
	}
	for _, child := range root.ChildItems {
		if child.CommerceItemID == commerceItemID {
			return child
		}
		if found := FindChild(child, commerceItemID); found != nil {
			return found
		}
	}
	return nil
}

// UpdateChildPrices recursively copies price, discount, and detail fields
// from a server response subtree onto the matching local subtree. Nodes pair
// up by (productID, catalogRefID) at each level; unmatched local children are
// left untouched.
func UpdateChildPrices(src, dst *LineItem) {
	if src == nil || dst == nil {
		return
	}
	for _, local := range dst.ChildItems {
		for _, remote := range src.ChildItems {
			if remote.ProductID != local.ProductID || remote.CatalogRefID != local.CatalogRefID {
				continue
			}
			local.UnitPrice = remote.UnitPrice
			local.RawTotalPrice = remote.RawTotalPrice
			local.DiscountInfo = append([]DiscountInfo(nil), remote.DiscountInfo...)
			local.DetailedPriceInfo = cloneDetails(remote.DetailedPriceInfo)
			if local.CommerceItemID == "" {
				local.CommerceItemID = remote.CommerceItemID
			}
			UpdateChildPrices(remote, local)
			break
		}
	}
}

// Walk visits node and every descendant in depth-first order until fn
// returns false.
func Walk(node *LineItem, fn func(*LineItem) bool) bool {
	if node == nil {
		return true
	}
	if !fn(node) {
		return false
	}
	for _, child := range node.ChildItems {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}
