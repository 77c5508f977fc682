package feed

// Detector decides which observed items are genuinely new. It is the
// single novelty authority shared by the polling and push paths: an item
// is new iff its default fingerprint is absent from the known set.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect is a pure filter over the current batch. It never mutates its
// inputs and repeated calls with the same arguments yield the same
// result.
func (d *Detector) Detect(current []Item, known map[string]struct{}) []Item {
	newItems := make([]Item, 0, len(current))
	for _, item := range current {
		if _, ok := known[item.Fingerprint(StrategyDefault)]; !ok {
			newItems = append(newItems, item)
		}
	}
	return newItems
}
