package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pombredanne/bao/baodec"
	"github.com/pombredanne/bao/baohash"
	"github.com/spf13/cobra"
)

func parseHash(s string) (baohash.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return baohash.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != baohash.Size {
		return baohash.Hash{}, fmt.Errorf("invalid hash %q: expected %d bytes, got %d", s, baohash.Size, len(b))
	}
	var h baohash.Hash
	copy(h[:], b)
	return h, nil
}

func newDecodeCmd() *cobra.Command {
	var start int64
	var outboardPath string
	cmd := &cobra.Command{
		Use:   "decode <hash> [input] [output]",
		Short: "Decode and verify a bao encoding against hash, writing the content to output",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseHash(args[0])
			if err != nil {
				return err
			}
			inName, outName := "", ""
			if len(args) >= 2 {
				inName = args[1]
			}
			if len(args) >= 3 {
				outName = args[2]
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
				tree, err := openInput(outboardPath)
				if err != nil {
					return fmt.Errorf("open outboard tree: %w", err)
				}
				defer closeQuietly(tree)
				r := baodec.NewOutboardReader(tree, in, root)
				return copyFromOffset(out, r, start)
			}

			r := baodec.NewReader(in, root)
			return copyFromOffset(out, r, start)
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "skip to this content offset before decoding")
	cmd.Flags().StringVar(&outboardPath, "outboard", "", "read parent nodes from this file instead of from input")
	return cmd
}

// copyFromOffset seeks r to start when start is non-zero (failing if r
// does not implement io.Seeker), then copies the rest of r to dst.
func copyFromOffset(dst io.Writer, r io.Reader, start int64) error {
	if start != 0 {
		seeker, ok := r.(io.Seeker)
		if !ok {
			return fmt.Errorf("decode: --start requires a seekable input")
		}
		if _, err := seeker.Seek(start, io.SeekStart); err != nil {
			return fmt.Errorf("seek to start offset: %w", err)
		}
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
