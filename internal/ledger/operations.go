package ledger

import (
	"context"
	"slices"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// Visibility is decided once in apply, against the filter active at that moment,
// and reused by commit and rollback.

type createOp struct {
	draft  core.Draft
	userID string

	temp    core.Record
	visible bool
}

func (op *createOp) name() string { return log.OpCreate }

func (op *createOp) apply(c *Coordinator) {
	op.temp = core.Record{
		ID:        c.tempID(),
		UserID:    op.userID,
		Amount:    op.draft.Amount,
		Date:      op.draft.Date,
		Category:  op.draft.Category,
		Note:      op.draft.Note,
		Kind:      op.draft.Kind,
		CreatedAt: c.now(),
	}
	op.visible = c.filter.Matches(op.temp)
	if op.visible {
		c.items = append([]core.Record{op.temp}, c.items...)
	}
	c.addKnown(op.temp.Category)
}

func (op *createOp) call(ctx context.Context, store storage.RecordStore, userID string) (core.Record, error) {
	return store.CreateRecord(ctx, op.draft.NewRecord(userID))
}

func (op *createOp) commit(c *Coordinator, stored core.Record) {
	if !op.visible {
		return
	}
	if i := c.indexOf(op.temp.ID); i >= 0 {
		c.items[i] = stored
	}
	c.addKnown(stored.Category)
}

func (op *createOp) rollback(c *Coordinator) {
	if !op.visible {
		return
	}
	if i := c.indexOf(op.temp.ID); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

type editOp struct {
	id    string
	draft core.Draft

	prev    core.Record
	index   int
	found   bool
	visible bool
}

func (op *editOp) name() string { return log.OpUpdate }

func (op *editOp) apply(c *Coordinator) {
	op.index = c.indexOf(op.id)
	if op.index < 0 {
		// removed by a concurrent operation since Edit checked
		return
	}
	op.found = true
	op.prev = c.items[op.index]
	next := op.draft.Apply(op.prev)
	op.visible = c.filter.Matches(next)
	if op.visible {
		c.items[op.index] = next
	} else {
		c.items = slices.Delete(c.items, op.index, op.index+1)
	}
	c.addKnown(next.Category)
}

func (op *editOp) call(ctx context.Context, store storage.RecordStore, userID string) (core.Record, error) {
	return store.UpdateRecord(ctx, userID, op.id, op.draft.Patch())
}

func (op *editOp) commit(c *Coordinator, stored core.Record) {
	if !op.found || !op.visible {
		return
	}
	if i := c.indexOf(op.id); i >= 0 {
		c.items[i] = stored
	}
}

func (op *editOp) rollback(c *Coordinator) {
	if !op.found {
		return
	}
	if i := c.indexOf(op.id); i >= 0 {
		c.items[i] = op.prev
		return
	}
	if op.visible {
		// deleted meanwhile; leave it gone
		return
	}
	at := min(op.index, len(c.items))
	c.items = slices.Insert(c.items, at, op.prev)
}

type deleteOp struct {
	id       string
	snapshot []core.Record
}

func (op *deleteOp) name() string { return log.OpDelete }

func (op *deleteOp) apply(c *Coordinator) {
	op.snapshot = slices.Clone(c.items)
	if i := c.indexOf(op.id); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

func (op *deleteOp) call(ctx context.Context, store storage.RecordStore, userID string) (core.Record, error) {
	return core.Record{}, store.DeleteRecord(ctx, userID, op.id)
}

func (op *deleteOp) commit(*Coordinator, core.Record) {}

func (op *deleteOp) rollback(c *Coordinator) {
	c.items = op.snapshot
}
