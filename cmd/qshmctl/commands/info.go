package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <uri>",
	Short: "Print the size of a shared memory region.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry(nil, nil, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		d, err := reg.Open(args[0], accessMode(false), 0)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck // read-only mapping, nothing to flush

		fmt.Fprintf(cmd.OutOrStdout(), "uri:    %s\nplugin: %s\nsize:   %d (%s)\n",
			d.URI(), d.Plugin(), d.Size(), humanize.IBytes(d.Size()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
