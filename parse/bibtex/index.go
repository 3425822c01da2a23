package bibtex

import (
	"slices"
	"strings"
)

// =========================
// Field Search Index
// =========================

// searchIndex maps a lower-cased field name to a trigram index over that
// field's values. Posting lists hold entry ordinals in ascending order.
type searchIndex struct {
	fields map[string]*fieldIndex
}

type fieldIndex struct {
	entries []int32
	grams   map[uint32][]int32
	exact   map[string][]int32
}

func trigram(s string, i int) uint32 {
	return uint32(s[i])<<16 | uint32(s[i+1])<<8 | uint32(s[i+2])
}

func appendOrdinal(list []int32, ord int32) []int32 {
	if n := len(list); n > 0 && list[n-1] == ord {
		return list
	}
	return append(list, ord)
}

func buildSearchIndex(entries []*Entry) *searchIndex {
	ix := &searchIndex{fields: make(map[string]*fieldIndex)}
	for n, e := range entries {
		ord := int32(n)
		for i := range e.Fields {
			f := &e.Fields[i]
			name := lower(f.Name)
			fx := ix.fields[name]
			if fx == nil {
				fx = &fieldIndex{grams: make(map[uint32][]int32), exact: make(map[string][]int32)}
				ix.fields[name] = fx
			}
			fx.entries = appendOrdinal(fx.entries, ord)
			text := f.Value.String()
			fx.exact[text] = appendOrdinal(fx.exact[text], ord)
			for j := 0; j+3 <= len(text); j++ {
				g := trigram(text, j)
				fx.grams[g] = appendOrdinal(fx.grams[g], ord)
			}
		}
	}
	return ix
}

// contains answers "entries whose field name contains substr". Candidates
// come from intersecting the posting lists of substr's trigrams and are then
// verified against the text.
func (ix *searchIndex) contains(entries []*Entry, name, substr string) []*Entry {
	fx := ix.fields[lower(name)]
	if fx == nil {
		return nil
	}
	candidates := fx.entries
	if len(substr) >= 3 {
		lists := make([][]int32, 0, len(substr)-2)
		for j := 0; j+3 <= len(substr); j++ {
			list, ok := fx.grams[trigram(substr, j)]
			if !ok {
				return nil
			}
			lists = append(lists, list)
		}
		slices.SortFunc(lists, func(a, b []int32) int { return len(a) - len(b) })
		candidates = lists[0]
		for _, l := range lists[1:] {
			candidates = intersect(candidates, l)
			if len(candidates) == 0 {
				return nil
			}
		}
	}
	var out []*Entry
	for _, ord := range candidates {
		e := entries[ord]
		for i := range e.Fields {
			if strings.EqualFold(e.Fields[i].Name, name) && strings.Contains(e.Fields[i].Value.String(), substr) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (ix *searchIndex) equals(entries []*Entry, name, value string) []*Entry {
	fx := ix.fields[lower(name)]
	if fx == nil {
		return nil
	}
	list := fx.exact[value]
	if len(list) == 0 {
		return nil
	}
	out := make([]*Entry, len(list))
	for i, ord := range list {
		out[i] = entries[ord]
	}
	return out
}

// intersect merges two ascending lists.
func intersect(a, b []int32) []int32 {
	out := make([]int32, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
