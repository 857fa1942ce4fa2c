package model

import "fmt"

// MigrationBuffer stages individuals leaving and entering one deme.
// Whenever an immigrant and a pending replacement slot both exist they
// are merged into the deme, oldest first.
type MigrationBuffer struct {
	emigrants  []*Individual
	immigrants []*Individual
	replaced   []int
}

func NewMigrationBuffer() *MigrationBuffer {
	return &MigrationBuffer{}
}

func (b *MigrationBuffer) Emigrants() int  { return len(b.emigrants) }
func (b *MigrationBuffer) Immigrants() int { return len(b.immigrants) }
func (b *MigrationBuffer) Replaced() int   { return len(b.replaced) }

// Empty reports whether all three queues are drained.
func (b *MigrationBuffer) Empty() bool {
	return len(b.emigrants) == 0 && len(b.immigrants) == 0 && len(b.replaced) == 0
}

// InsertEmigrants queues deep copies of the given deme slots. onCopy, when
// set, is called with each source and its copy.
func (b *MigrationBuffer) InsertEmigrants(indices []int, deme *Deme, onCopy func(src, dup *Individual)) error {
	for _, idx := range indices {
		if idx < 0 || idx >= deme.Len() {
			return fmt.Errorf("%w: emigrant index %d, deme size %d", ErrSlotOutOfRange, idx, deme.Len())
		}
		src := deme.Individuals[idx]
		dup := src.Clone()
		b.emigrants = append(b.emigrants, dup)
		if onCopy != nil {
			onCopy(src, dup)
		}
	}
	return nil
}

// InsertReplaced queues deme slots to be overwritten by immigrants and
// merges whatever immigrants are already waiting.
func (b *MigrationBuffer) InsertReplaced(indices []int, deme *Deme) error {
	b.replaced = append(b.replaced, indices...)
	return b.Merge(deme)
}

// Merge pairs waiting immigrants with pending slots. It does nothing on
// an empty deme.
func (b *MigrationBuffer) Merge(deme *Deme) error {
	if deme.Len() == 0 {
		return nil
	}
	for len(b.immigrants) > 0 && len(b.replaced) > 0 {
		slot := b.replaced[0]
		if slot < 0 || slot >= deme.Len() {
			return fmt.Errorf("%w: slot %d, deme size %d", ErrSlotOutOfRange, slot, deme.Len())
		}
		deme.Individuals[slot] = b.immigrants[0]
		b.immigrants[0] = nil
		b.immigrants = b.immigrants[1:]
		b.replaced = b.replaced[1:]
		deme.InvalidateStats()
	}
	return nil
}

// MoveMigrants transfers the n oldest emigrants into dest's buffer and
// merges them into dest where slots are pending.
func (b *MigrationBuffer) MoveMigrants(n int, dest *Deme) error {
	if n > len(b.emigrants) {
		return fmt.Errorf("%w: asked %d, have %d", ErrTooManyEmigrants, n, len(b.emigrants))
	}
	if dest.Buffer == nil {
		dest.Buffer = NewMigrationBuffer()
	}
	dest.Buffer.immigrants = append(dest.Buffer.immigrants, b.emigrants[:n]...)
	b.emigrants = append(b.emigrants[:0:0], b.emigrants[n:]...)
	return dest.Buffer.Merge(dest)
}

// Clear drops every queued individual and slot.
func (b *MigrationBuffer) Clear() {
	b.emigrants, b.immigrants, b.replaced = nil, nil, nil
}
