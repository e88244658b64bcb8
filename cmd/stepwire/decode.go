package main

import (
	"bufio"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/pkg/memio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var decodeOutput string

// cborMode writes Core Deterministic CBOR so equal documents give equal
// bytes.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor encoder initialization failed: " + err.Error())
	}
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file.bin]",
	Short: "Decode binary inventory documents to YAML or CBOR",
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

		var src stepwire.Source = stepwire.ReaderSource(bufio.NewReader(in))
		if globalFlags.Trickle {
			src = memio.TrickleSource(src)
		}
		docs, err := readAll(cmd.Context(), f, src,
			stepwire.WithName("decode"), stepwire.WithLogger(log))
		if err != nil {
			return err
		}
		log.Info("decoded", zap.Int("documents", len(docs)))

		out := cmd.OutOrStdout()
		switch decodeOutput {
		case "yaml":
			b, err := canonical(docs)
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		case "cbor":
			enc := cborMode.NewEncoder(out)
			for i := range docs {
				if err := enc.Encode(&docs[i]); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("unknown output %q", decodeOutput)
		}
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", "yaml", "output encoding: yaml|cbor")
}
