package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/rawbytedev/stepwire"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sample is the shape profiled by the profile command.
type sample struct {
	Val      []string
	Mod      []int8
	Integers []int16
	Float3   []float32
	Float6   []float64
}

var (
	profileRounds int
	profileHeap   string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Marshal and unmarshal a derived struct repeatedly and write a heap profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := wireFormat(globalFlags.Format)
		if err != nil {
			return err
		}
		c, err := stepwire.Derive[sample]()
		if err != nil {
			return err
		}
		out, err := os.Create(profileHeap)
		if err != nil {
			return err
		}
		defer out.Close()

		runtime.MemProfileRate = 1
		z := sample{
			Val:      []string{"azerty", "hello", "world", "random"},
			Mod:      []int8{12, 10, 13, 0},
			Integers: []int16{100, 250, 300},
			Float3:   []float32{12.13, 16.23, 75.1},
			Float6:   []float64{100.5, 165.63, 153.5},
		}
		var size int
		for i := 0; i < profileRounds; i++ {
			data, err := stepwire.Marshal(f, c, z)
			if err != nil {
				return err
			}
			if _, err := stepwire.Unmarshal(f, c, data); err != nil {
				return err
			}
			size = len(data)
		}
		if err := pprof.WriteHeapProfile(out); err != nil {
			return err
		}
		log.Info("profile written",
			zap.String("file", profileHeap),
			zap.Int("rounds", profileRounds),
			zap.Int("encoded_size", size),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "%d rounds, %d bytes per item, heap profile in %s\n", profileRounds, size, profileHeap)
		return nil
	},
}

func init() {
	profileCmd.Flags().IntVarP(&profileRounds, "rounds", "n", 10000, "number of marshal/unmarshal rounds")
	profileCmd.Flags().StringVar(&profileHeap, "heap", "mem.prof", "heap profile output file")
}
