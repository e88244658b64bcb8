package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/pkg/memio"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

var (
	encodeOut    string
	encodeDigest bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode [file.yaml]",
	Short: "Encode YAML inventory documents to the binary wire format",
	Long:  "Reads one or more YAML documents from the file or stdin and writes them back to back in binary.",
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

		var out io.Writer = cmd.OutOrStdout()
		if encodeOut != "" {
			file, err := os.Create(encodeOut)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}
		hasher := blake3.New()
		var sink stepwire.Sink = stepwire.WriterSink(io.MultiWriter(out, hasher))
		if globalFlags.Trickle {
			sink = memio.TrickleSink(sink)
		}
		err = writeAll(cmd.Context(), f, sink, docs, false,
			stepwire.WithName("encode"), stepwire.WithLogger(log))
		if err != nil {
			return err
		}
		log.Info("encoded",
			zap.Int("documents", len(docs)),
			zap.String("format", globalFlags.Format),
		)
		if encodeDigest {
			fmt.Fprintf(cmd.ErrOrStderr(), "blake3 %x\n", hasher.Sum(nil))
		}
		return nil
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeOut, "out", "O", "", "output file (default stdout)")
	encodeCmd.Flags().BoolVar(&encodeDigest, "digest", false, "print the BLAKE3 digest of the encoded bytes")
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}
