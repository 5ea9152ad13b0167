package main

import (
	"fmt"
	"io"

	"github.com/pombredanne/bao/baoenc"
	"github.com/pombredanne/bao/baohash"
	"github.com/spf13/cobra"
)

func newEncodeCmd() *cobra.Command {
	var outboard bool
	cmd := &cobra.Command{
		Use:   "encode [input] [output]",
		Short: "Write the bao encoding of input to output",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inName, outName := "", ""
			if len(args) >= 1 {
				inName = args[0]
			}
			if len(args) >= 2 {
				outName = args[1]
			}

			in, err := openInput(inName)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer closeQuietly(in)

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			var encoded []byte
			var rootHash baohash.Hash
			if outboard {
				encoded, rootHash = baoenc.EncodeOutboard(data)
			} else {
				encoded, rootHash = baoenc.Encode(data)
			}

			out, err := openOutput(outName)
			if err != nil {
				return fmt.Errorf("open output: %w", err)
			}
			defer closeQuietly(out)

			if _, err := out.Write(encoded); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), rootHash.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&outboard, "outboard", false, "write an outboard encoding instead of a combined one")
	return cmd
}
