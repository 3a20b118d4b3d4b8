package repository

import "context"

// ListCache stores rendered list pages per collection. Invalidate drops
// every page of a collection at once by moving it to a new generation.
//
// Get reports the generation it looked in, and Set stores under that same
// generation, so a page fetched before a write never lands after it.
type ListCache interface {
	Get(ctx context.Context, collection, page string) (payload []byte, gen int64, ok bool, err error)
	Set(ctx context.Context, collection string, gen int64, page string, payload []byte) error
	Invalidate(ctx context.Context, collection string) error
}
