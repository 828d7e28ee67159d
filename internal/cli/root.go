package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/icrc151/ledgerd/internal/config"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerd",
	Short: "ledgerd - ICRC-151 multi-token ledger node",
	Long: `ledgerd is an idiomatic Go implementation of an ICRC-151 multi-token
fungible ledger. It is not a translation of the reference implementation but
a native Go service that follows Go conventions while keeping the same wire
semantics: transfer, approve, transfer_from, mint and burn, served over
JSON-RPC 2.0.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output to console after startup")

	rootCmd.PersistentFlags().Bool("standalone", false, "run with no external ledger peers")
	rootCmd.PersistentFlags().String("genesis", "", "path to a genesis JSON file (not read by any command; genesis comes from the config file's genesis_file or [genesis] table)")
}

// loadedConfig holds the result of initConfig, read by server.go's runServer.
var loadedConfig *config.Config

// initConfig reads the config file named by --conf, or ./ledgerd.toml via
// LoadDefaultConfig when --conf is empty, together with environment
// variables; it exits the process if loading fails.
func initConfig() {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadConfig(config.ConfigPaths{Main: configFile})
	} else {
		cfg, err = config.LoadDefaultConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	loadedConfig = cfg
}
