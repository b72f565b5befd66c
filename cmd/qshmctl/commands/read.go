package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/valyala/bytebufferpool"
)

var readCmd = &cobra.Command{
	Use:   "read <uri>",
	Short: "Hexdump bytes of a shared memory region.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt64("offset")
		count, _ := cmd.Flags().GetInt("count")
		if count < 0 {
			return fmt.Errorf("count must not be negative, got %d", count)
		}

		reg, err := newRegistry(nil, nil, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		d, err := reg.Open(args[0], accessMode(false), 0)
		if err != nil {
			return err
		}
		defer d.Close() //nolint:errcheck // read-only mapping, nothing to flush

		data := make([]byte, count)
		n, err := d.ReadAt(data, offset)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return dump(cmd.OutOrStdout(), data[:n])
	},
}

func dump(out io.Writer, data []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	dumper := hex.Dumper(buf)
	if _, err := dumper.Write(data); err != nil {
		return err
	}
	if err := dumper.Close(); err != nil {
		return err
	}
	_, err := buf.WriteTo(out)
	return err
}

func init() {
	readCmd.Flags().Int64("offset", 0, "offset of the first byte")
	readCmd.Flags().Int("count", 256, "number of bytes to read")
	rootCmd.AddCommand(readCmd)
}
