package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	version     bool
	logfile     string
	verbose     int
	configFile  string
	tcp         string
	websocket   string
	metricsAddr string
}

func newRootCommand() *cobra.Command {
	var f flags
	v := newViper()

	cmd := &cobra.Command{
		Use:           "mplxls",
		Short:         "Language server for mplx",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.version {
				fmt.Fprintf(cmd.OutOrStdout(), "mplxls language server version %s\n", Version)
				return nil
			}
			configureLogging(f.verbose, f.logfile)
			cfg, err := loadConfig(v, f.configFile)
			if err != nil {
				log.Errorf("configuration: %s", err)
				return err
			}
			if err := run(cfg, f); err != nil {
				log.Errorf("%s", err)
				return err
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&f.version, "version", false, "print the version and exit")
	fs.StringVar(&f.logfile, "logfile", "", "write logs to this file instead of stderr")
	fs.CountVarP(&f.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	fs.StringVar(&f.configFile, "config", "", "configuration file (yaml, toml or json)")
	fs.String("checker", "", "path to the mplx checker executable")
	fs.Int("max-depth", 0, "workspace scan depth")
	fs.String("rename-scope", "", `rename scope: "open" or "workspace"`)
	fs.StringVar(&f.tcp, "tcp", "", "listen for a client on this TCP address instead of stdio")
	fs.StringVar(&f.websocket, "websocket", "", "listen for clients on this address over websockets")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	bindFlags(v, fs)
	return cmd
}

var log = commonlog.GetLogger("mplxls")

func configureLogging(verbose int, logfile string) {
	var path *string // nil logs to stderr
	if logfile != "" {
		path = &logfile
	}
	commonlog.Configure(1+verbose, path)
}
