package main

import (
	"bytes"
	"fmt"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/pkg/memio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var pipeSize int

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [file.yaml]",
	Short: "Encode and decode concurrently over an in-memory pipe and compare",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := wireFormat(globalFlags.Format)
		if err != nil {
			return err
		}
		in, err := openInput(args)
		if err != nil {
			return err
		}
		defer in.Close()
		docs, err := readInventories(in)
		if err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}

		w, r := memio.Pipe(pipeSize)
		var got []Inventory
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			var sink stepwire.Sink = w
			if globalFlags.Trickle {
				sink = memio.TrickleSink(sink)
			}
			return writeAll(ctx, f, sink, docs, true,
				stepwire.WithName("roundtrip-encode"), stepwire.WithLogger(log))
		})
		g.Go(func() error {
			var src stepwire.Source = r
			if globalFlags.Trickle {
				src = memio.TrickleSource(src)
			}
			var err error
			got, err = readAll(ctx, f, src,
				stepwire.WithName("roundtrip-decode"), stepwire.WithLogger(log))
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		want, err := canonical(docs)
		if err != nil {
			return err
		}
		have, err := canonical(got)
		if err != nil {
			return err
		}
		if !bytes.Equal(want, have) {
			return fmt.Errorf("roundtrip mismatch:\n--- sent\n%s--- received\n%s", want, have)
		}
		log.Info("roundtrip ok", zap.Int("documents", len(got)), zap.Int("pipe_size", pipeSize))
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d documents\n", len(got))
		return nil
	},
}

func init() {
	roundtripCmd.Flags().IntVar(&pipeSize, "pipe-size", 1, "pipe buffer size in bytes")
}
