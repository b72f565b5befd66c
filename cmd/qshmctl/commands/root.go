// Package commands provides the command-line interface of qshmctl.
package commands

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/srediag/plugin-qshm/adapter"
	"github.com/srediag/plugin-qshm/api"
	"github.com/srediag/plugin-qshm/internal/debug"
	"github.com/srediag/plugin-qshm/pkg/qshm"
	"github.com/srediag/plugin-qshm/pkg/registry"
)

var logLevel int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qshmctl",
	Short: "Inspect and edit emulator shared memory regions.",
	Long: `qshmctl opens qshm://<path> URIs, where <path> is the file backing an ` +
		`emulator's shared memory (for example /dev/shm/ivshmem), and reads, ` +
		`writes or serves health and metrics for them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("log-level") {
			debug.SetLogLevel(logLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&logLevel, "log-level", debug.LogLevel(),
		"log level: 0 trace, 1 debug, 2 info, 3 warn, 4 error, 5 none (env "+debug.EnvLogLevel+")")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newRegistry composes the qshm plugin into a registry.
func newRegistry(registerer prometheus.Registerer, audit api.Audit, logOut io.Writer) (*registry.Registry, error) {
	pcfg := adapter.OTelFromGlobal(qshm.DefaultConfig(), "qshmctl")
	pcfg.LogOutput = logOut
	p, err := qshm.New(pcfg)
	if err != nil {
		return nil, err
	}
	rcfg := registry.DefaultConfig()
	rcfg.Registerer = registerer
	rcfg.Audit = audit
	rcfg.LogOutput = logOut
	return registry.New(rcfg, p)
}

func accessMode(write bool) api.AccessMode {
	if write {
		return api.ReadWrite
	}
	return api.ReadOnly
}
