package main

import (
	"fmt"

	"github.com/pombredanne/bao/baoslice"
	"github.com/spf13/cobra"
)

func newDecodeSliceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode-slice <hash> <start> <len> [input] [output]",
		Short: "Decode and verify a slice produced by slice against hash",
		Args:  cobra.RangeArgs(3, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseHash(args[0])
			if err != nil {
				return err
			}
			start, length, err := parseRange(args[1], args[2])
			if err != nil {
				return err
			}
			inName, outName := "", ""
			if len(args) >= 4 {
				inName = args[3]
			}
			if len(args) >= 5 {
				outName = args[4]
			}

			in, err := openInput(inName)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer closeQuietly(in)

			out, err := openOutput(outName)
			if err != nil {
				return fmt.Errorf("open output: %w", err)
			}
			defer closeQuietly(out)

			if err := baoslice.Decode(in, root, start, length, out); err != nil {
				return fmt.Errorf("decode-slice: %w", err)
			}
			return nil
		},
	}
	return cmd
}
