// Command compileorchd is a small cobra-driven harness for
// internal/compile.Orchestrator. It is not the outer build server: it owns
// no client connections and understands no wire protocol. It exists so the
// orchestrator can be driven end-to-end against a fixture project and the
// fake engine, the way a developer would exercise internal/build.Pipeline
// through templar's own `build` command.
//
// Adapted from the teacher's cmd/root.go (viper/cobra bootstrap) and
// cmd/build.go (config load -> container -> pipeline run shape).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "compileorchd",
	Short: "Demo harness for the per-project incremental compile orchestrator",
	Long: `compileorchd drives internal/compile.Orchestrator against a fixture
project using the in-memory fake engine. It is a test harness for this
module only, not a build server: it has no BSP/CLI transport and owns no
client connections.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .compileorch.yml, or COMPILEORCH_CONFIG_FILE)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error); stored as the log_level setting, which the logger does not read")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if env := os.Getenv("COMPILEORCH_CONFIG_FILE"); env != "" {
		viper.SetConfigFile(env)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".compileorch")
	}

	viper.SetEnvPrefix("COMPILEORCH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
