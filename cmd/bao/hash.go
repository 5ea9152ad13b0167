package main

import (
	"fmt"
	"io"

	"github.com/pombredanne/bao/baodec"
	"github.com/pombredanne/bao/baohash"
	"github.com/spf13/cobra"
)

func newHashCmd() *cobra.Command {
	var encoded bool
	cmd := &cobra.Command{
		Use:   "hash [input]",
		Short: "Compute the bao hash of a file, or stdin if no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			in, err := openInput(name)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer closeQuietly(in)

			var root baohash.Hash
			if encoded {
				root, err = baodec.HashFromEncoded(in)
			} else {
				w := baohash.NewWriter()
				if _, copyErr := io.Copy(w, in); copyErr != nil {
					return fmt.Errorf("read input: %w", copyErr)
				}
				root = w.Finalize()
			}
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			fmt.Println(root.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&encoded, "encoded", false, "input is already a bao-encoded stream; recompute its root without re-hashing the whole content")
	return cmd
}
