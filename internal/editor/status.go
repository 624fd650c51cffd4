package editor

// StatusItem is one status-bar entry. Keys are unique per view;
// Source names the plugin that owns the entry.
type StatusItem struct {
	Source    string
	Key       string
	Value     string
	Alignment string
}

// StatusBar holds a view's status items in insertion order, split by
// alignment at render time.
type StatusBar struct {
	items []StatusItem
	index map[string]int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{index: make(map[string]int)}
}

// Add inserts an item, replacing any existing item with the same key
// in place so its position is stable.
func (b *StatusBar) Add(item StatusItem) {
	if i, ok := b.index[item.Key]; ok {
		b.items[i] = item
		return
	}
	b.index[item.Key] = len(b.items)
	b.items = append(b.items, item)
}

// Update changes an existing item's value. Unknown keys report false.
func (b *StatusBar) Update(key, value string) bool {
	i, ok := b.index[key]
	if !ok {
		return false
	}
	b.items[i].Value = value
	return true
}

// Remove deletes an item by key. Unknown keys are a no-op.
func (b *StatusBar) Remove(key string) {
	i, ok := b.index[key]
	if !ok {
		return
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
	delete(b.index, key)
	for k, idx := range b.index {
		if idx > i {
			b.index[k] = idx - 1
		}
	}
}

// Len returns the number of items.
func (b *StatusBar) Len() int {
	return len(b.items)
}

// Aligned returns the items with the given alignment, in insertion
// order.
func (b *StatusBar) Aligned(alignment string) []StatusItem {
	var out []StatusItem
	for _, item := range b.items {
		if item.Alignment == alignment {
			out = append(out, item)
		}
	}
	return out
}

// Items returns all items in insertion order.
func (b *StatusBar) Items() []StatusItem {
	out := make([]StatusItem, len(b.items))
	copy(out, b.items)
	return out
}
