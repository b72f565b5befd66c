package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srediag/plugin-qshm/pkg/qshm"
)

var writeCmd = &cobra.Command{
	Use:   "write <uri> <hex-bytes>",
	Short: "Write bytes into a shared memory region.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt64("offset")
		data, err := hex.DecodeString(args[1])
		if err != nil {
			return fmt.Errorf("decode %q: %w", args[1], err)
		}

		reg, err := newRegistry(nil, nil, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		d, err := reg.Open(args[0], accessMode(true), 0)
		if err != nil {
			return err
		}
		if _, err := d.WriteAt(data, offset); err != nil {
			_ = d.Close()
			return err
		}
		if r, ok := d.Handle().(*qshm.Resource); ok {
			if err := r.Sync(); err != nil {
				_ = d.Close()
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes at %#x\n", len(data), offset)
		return d.Close()
	},
}

func init() {
	writeCmd.Flags().Int64("offset", 0, "offset of the first byte")
	rootCmd.AddCommand(writeCmd)
}
