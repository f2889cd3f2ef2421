package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/aund/pkg/metrics"
)

// Instrument wraps s so that every call is reported to m. A nil m returns
// s unchanged.
func Instrument(s Store, storeType string, m metrics.MetadataMetrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, storeType: storeType, m: m}
}

type instrumented struct {
	Store
	storeType string
	m         metrics.MetadataMetrics
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	i.m.ObserveOperation(i.storeType, op, time.Since(start), err)
}

func (i *instrumented) Get(ctx context.Context, path string) (Meta, error) {
	start := time.Now()
	m, err := i.Store.Get(ctx, path)
	hit := err == nil
	if errors.Is(err, ErrNotFound) {
		// A miss is the normal answer for files saved by other tools.
		i.observe("get", start, nil)
	} else {
		i.observe("get", start, err)
	}
	i.m.RecordLookup(i.storeType, hit)
	return m, err
}

func (i *instrumented) Set(ctx context.Context, path string, m Meta) error {
	start := time.Now()
	err := i.Store.Set(ctx, path, m)
	i.observe("set", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := i.Store.Delete(ctx, path)
	i.observe("delete", start, err)
	return err
}

func (i *instrumented) Rename(ctx context.Context, from, to string) error {
	start := time.Now()
	err := i.Store.Rename(ctx, from, to)
	i.observe("rename", start, err)
	return err
}

func (i *instrumented) RemoveDir(ctx context.Context, dir string) error {
	start := time.Now()
	err := i.Store.RemoveDir(ctx, dir)
	i.observe("remove_dir", start, err)
	return err
}
