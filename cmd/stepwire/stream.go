package main

import (
	"context"
	"errors"
	"io"

	"github.com/rawbytedev/stepwire"
)

// wait retries step until it stops reporting ErrWouldBlock, parking on sig
// in between.
func wait(ctx context.Context, sig *stepwire.Signal, step func() error) error {
	for {
		err := step()
		if !errors.Is(err, stepwire.ErrWouldBlock) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sig.C():
		}
	}
}

// writeAll streams docs through a Serializer. With closeSink the sink is
// closed at the end, otherwise only flushed.
func writeAll(ctx context.Context, f stepwire.Format, w stepwire.Sink, docs []Inventory, closeSink bool, opts ...stepwire.FrontOption) error {
	sig := stepwire.NewSignal()
	cx := stepwire.NewContext(sig)
	ser := stepwire.NewSerializer(f, inventoryCodec, w, opts...)
	for _, doc := range docs {
		if err := wait(ctx, sig, func() error { return ser.PollReady(cx) }); err != nil {
			return err
		}
		if err := ser.StartSend(doc); err != nil {
			return err
		}
	}
	if closeSink {
		return wait(ctx, sig, func() error { return ser.PollClose(cx) })
	}
	return wait(ctx, sig, func() error { return ser.PollFlush(cx) })
}

// readAll decodes documents until the source ends between two of them.
func readAll(ctx context.Context, f stepwire.Format, r stepwire.Source, opts ...stepwire.FrontOption) ([]Inventory, error) {
	sig := stepwire.NewSignal()
	cx := stepwire.NewContext(sig)
	des := stepwire.NewDeserializer(f, inventoryCodec, r, opts...)
	var docs []Inventory
	for {
		var inv Inventory
		err := wait(ctx, sig, func() error {
			var err error
			inv, err = des.PollNext(cx)
			return err
		})
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, inv)
	}
}
