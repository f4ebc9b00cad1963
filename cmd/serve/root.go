package serve

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Akshat-Diwedi/nuke-kv/server"
	"github.com/Akshat-Diwedi/nuke-kv/server/common"
)

var (
	serveCmdConfig = &common.ServerConfig{}

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start the NukeKV server",
		Long:    `Start the NukeKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is NUKEKV_<flag> (e.g. NUKEKV_BATCH_SIZE=100)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	ServeCmd.PersistentFlags().Int("port", common.DefaultPort, "TCP port the server listens on")
	ServeCmd.PersistentFlags().String("db-file", common.DefaultDBFile, "Path of the snapshot database file")
	ServeCmd.PersistentFlags().Bool("persistence", true, "Whether snapshots are written to disk at all")
	ServeCmd.PersistentFlags().Int("batch-size", common.DefaultBatchSize, "Number of dirty mutations that triggers a background snapshot. 0 flushes every mutation inline")
	ServeCmd.PersistentFlags().Bool("caching", true, "Whether the LRU recency list and memory capping are active")
	ServeCmd.PersistentFlags().Uint64("max-memory-gb", common.DefaultMaxRAMGB, "Memory ceiling for key+value bytes in GiB. 0 means unlimited")
	ServeCmd.PersistentFlags().Int("workers", common.DefaultWorkerCount, "Number of worker threads. 0 chooses max(1, NumCPU-1)")
	ServeCmd.PersistentFlags().Bool("debug", false, "Start with debug mode on (reply timing suffixes, verbose logs)")
	ServeCmd.PersistentFlags().String("log-level", "info", "LogLevel is the level at which logs will be output (debug, info, warn, error)")
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Port = viper.GetInt("port")
	serveCmdConfig.DBFilename = viper.GetString("db-file")
	serveCmdConfig.PersistenceEnabled = viper.GetBool("persistence")
	serveCmdConfig.BatchSize = viper.GetInt("batch-size")
	serveCmdConfig.CachingEnabled = viper.GetBool("caching")
	serveCmdConfig.MaxRAMGB = viper.GetUint64("max-memory-gb")
	serveCmdConfig.WorkerCount = viper.GetInt("workers")
	serveCmdConfig.Debug = viper.GetBool("debug")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return common.InitLoggers(*serveCmdConfig)
}

// run starts the NukeKV server
func run(_ *cobra.Command, _ []string) error {
	serv := server.New(*serveCmdConfig)
	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("nukekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
