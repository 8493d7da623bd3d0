package ledger

import "context"

// Observer receives the operation name and outcome of every store call
type Observer func(op string, err error)

type observed struct {
	Store
	observe Observer
}

// Observe wraps a store so each call is reported to fn
func Observe(s Store, fn Observer) Store {
	if fn == nil {
		return s
	}
	return &observed{Store: s, observe: fn}
}

func (o *observed) Append(ctx context.Context, row Row) (Row, error) {
	r, err := o.Store.Append(ctx, row)
	o.observe("append", err)
	return r, err
}

func (o *observed) ReadAll(ctx context.Context) ([]Row, error) {
	rows, err := o.Store.ReadAll(ctx)
	o.observe("read_all", err)
	return rows, err
}

func (o *observed) UpdateCell(ctx context.Context, id string, col Column, value any) error {
	err := o.Store.UpdateCell(ctx, id, col, value)
	o.observe("update_cell", err)
	return err
}

func (o *observed) Delete(ctx context.Context, id string) error {
	err := o.Store.Delete(ctx, id)
	o.observe("delete", err)
	return err
}
