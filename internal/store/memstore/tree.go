package memstore

import "strings"

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func joinPath(segs []string) string {
	return strings.Join(segs, "/")
}

// docKey maps a path to the document whose version guards it. Documents live
// two levels deep (collection/key); field paths inherit their document's key.
func docKey(segs []string) string {
	if len(segs) > 2 {
		segs = segs[:2]
	}
	return strings.Join(segs, "/")
}

// pathsOverlap reports whether one path addresses a node inside the other's
// subtree, in either direction.
func pathsOverlap(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// getNode walks the tree without copying. A missing node is nil.
func getNode(m map[string]any, segs []string) any {
	if len(segs) == 0 {
		if len(m) == 0 {
			return nil
		}
		return m
	}
	cur := any(m)
	for _, seg := range segs {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = node[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

// setNode writes v at segs, creating intermediate maps as needed. A nil v
// deletes the node and prunes empty parents, so an empty map never lingers
// where "absent" is meant.
func setNode(m map[string]any, segs []string, v any) {
	if len(segs) == 0 {
		for k := range m {
			delete(m, k)
		}
		if node, ok := v.(map[string]any); ok {
			for k, c := range node {
				m[k] = c
			}
		}
		return
	}

	k := segs[0]
	if len(segs) == 1 {
		if v == nil {
			delete(m, k)
		} else {
			m[k] = v
		}
		return
	}

	child, ok := m[k].(map[string]any)
	if !ok {
		if v == nil {
			return
		}
		child = make(map[string]any)
		m[k] = child
	}
	setNode(child, segs[1:], v)
	if len(child) == 0 {
		delete(m, k)
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = deepCopy(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = deepCopy(c)
		}
		return out
	default:
		return v
	}
}
