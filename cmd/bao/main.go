// Command bao hashes, encodes, decodes, and slices files using the bao
// tree hash, mirroring the reference bao command-line tool's surface:
// hash, encode, decode, slice, and decode-slice.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bao:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bao",
		Short:         "bao computes and verifies tree hashes with incremental, verified streaming",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newHashCmd(),
		newEncodeCmd(),
		newDecodeCmd(),
		newSliceCmd(),
		newDecodeSliceCmd(),
	)
	return root
}

// openInput opens name for reading, or returns os.Stdin when name is
// empty or "-".
func openInput(name string) (*os.File, error) {
	if name == "" || name == "-" {
		return os.Stdin, nil
	}
	return os.Open(name)
}

// openOutput opens name for writing, truncating it, or returns
// os.Stdout when name is empty or "-".
func openOutput(name string) (*os.File, error) {
	if name == "" || name == "-" {
		return os.Stdout, nil
	}
	return os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
}

// closeQuietly closes f, ignoring the error, unless f is one of the
// standard streams, which are left open for the rest of the process.
func closeQuietly(f *os.File) {
	if f == os.Stdin || f == os.Stdout || f == os.Stderr {
		return
	}
	_ = f.Close()
}
