package main

import (
	"fmt"
	"strconv"

	"github.com/pombredanne/bao/baoslice"
	"github.com/spf13/cobra"
)

func parseRange(startArg, lenArg string) (uint64, uint64, error) {
	start, err := strconv.ParseUint(startArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start %q: %w", startArg, err)
	}
	length, err := strconv.ParseUint(lenArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid length %q: %w", lenArg, err)
	}
	return start, length, nil
}

func newSliceCmd() *cobra.Command {
	var outboardPath string
	cmd := &cobra.Command{
		Use:   "slice <start> <len> [input] [output]",
		Short: "Extract the minimal slice of a bao encoding covering [start, start+len)",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, length, err := parseRange(args[0], args[1])
			if err != nil {
				return err
			}
			inName, outName := "", ""
			if len(args) >= 3 {
				inName = args[2]
			}
			if len(args) >= 4 {
				outName = args[3]
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

			if outboardPath != "" {
				content, err := openInput(outboardPath)
				if err != nil {
					return fmt.Errorf("open outboard content: %w", err)
				}
				defer closeQuietly(content)
				return baoslice.ExtractOutboard(in, content, start, length, out)
			}
			return baoslice.Extract(in, start, length, out)
		},
	}
	cmd.Flags().StringVar(&outboardPath, "outboard", "", "read content bytes from this file and treat input as an outboard tree")
	return cmd
}
