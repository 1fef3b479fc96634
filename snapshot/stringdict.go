package snapshot

import (
	"sort"

	"github.com/chrono-triage/dumptriage/model"
)

// stringAgg is the mutable aggregate behind one dictionary entry while the
// builder walks stack roots and heap objects. model.NotableString is
// derived from it only once, at the end of the walk.
type stringAgg struct {
	text         string
	totalLength  int
	wasTruncated bool
	source       model.StringSource
	occurrences  int
	threadIDs    map[int]bool
}

// stringDict is the shared, insertion-ordered dictionary described in
// spec §4.1.2: keyed by post-truncation text, merged across the
// stack-root walk and the heap walk. Dedup key is the post-truncation
// text (spec §9) — two originally distinct strings that truncate
// identically are intentionally merged.
type stringDict struct {
	order []string
	byKey map[string]*stringAgg
}

func newStringDict() *stringDict {
	return &stringDict{byKey: make(map[string]*stringAgg)}
}

func (d *stringDict) len() int { return len(d.order) }

func mergeSource(existing, incoming model.StringSource) model.StringSource {
	if existing == incoming {
		return existing
	}
	return model.SourceStackAndHeap
}

// upsert records one observation of text. threadID is nil for a heap
// observation with no stack owner. Returns whether this created a new
// entry (false means it deduplicated into an existing one).
func (d *stringDict) upsert(text string, totalLength int, wasTruncated bool, source model.StringSource, threadID *int) bool {
	if agg, ok := d.byKey[text]; ok {
		agg.occurrences++
		agg.source = mergeSource(agg.source, source)
		if threadID != nil {
			agg.threadIDs[*threadID] = true
		}
		return false
	}

	agg := &stringAgg{
		text:         text,
		totalLength:  totalLength,
		wasTruncated: wasTruncated,
		source:       source,
		occurrences:  1,
		threadIDs:    make(map[int]bool),
	}
	if threadID != nil {
		agg.threadIDs[*threadID] = true
	}
	d.byKey[text] = agg
	d.order = append(d.order, text)
	return true
}

// addOwners folds additional thread owners into an existing entry keyed
// by text, without touching occurrences or source. Used when a heap
// string's address was also pinned by a stack root that never itself
// resolved to this exact post-truncation text.
func (d *stringDict) addOwners(text string, ids map[int]bool) {
	agg, ok := d.byKey[text]
	if !ok {
		return
	}
	for id := range ids {
		agg.threadIDs[id] = true
	}
}

// strings returns the final NotableString slice in first-seen order.
func (d *stringDict) strings() []model.NotableString {
	out := make([]model.NotableString, 0, len(d.order))
	for _, key := range d.order {
		agg := d.byKey[key]
		ids := make([]int, 0, len(agg.threadIDs))
		for id := range agg.threadIDs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out = append(out, model.NotableString{
			ThreadIDs:    ids,
			Text:         agg.text,
			TotalLength:  agg.totalLength,
			WasTruncated: agg.wasTruncated,
			Source:       agg.source,
			Occurrences:  agg.occurrences,
		})
	}
	return out
}
