package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/address-geocoder/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [address...]",
	Short: "Print the cache key for addresses",
	Long:  "Normalizes each argument, or each line of stdin when no arguments are given, and prints one result per line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		n := normalize.New(cfg.Normalize.Expansions...)
		if len(args) > 0 {
			for _, a := range args {
				fmt.Fprintln(cmd.OutOrStdout(), n.Normalize(a))
			}
			return nil
		}
		return normalizeLines(n, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func normalizeLines(n *normalize.Normalizer, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fmt.Fprintln(w, n.Normalize(sc.Text()))
	}
	return eris.Wrap(sc.Err(), "normalize: read input")
}
