package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dataprov",
	Short: "Dataprov manages versioned datasets in a project",
	Long: `Dataprov manages versioned, provenance-tracked datasets inside a project.

Datasets group files imported from local paths, remote git repositories or
external catalog providers (Zenodo, Dataverse, other projects). Every file
keeps its provenance, datasets can be synchronized against their sources,
and immutable tags capture states worth naming.
`,
}

var (
	// globals used to patch over calls to os.Exit() during test
	logFatalln = log.Fatalln
	logFatalf  = log.Fatalf

	// infoLogger wraps informative messages to os.Stdout without cluttering
	// expected output in tests
	infoLogger = log.New(os.Stdout, "", 0)
)

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalf("%v", fmt.Errorf(msg+": %w", err))
	}
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	addLogLevelFlag(rootCmd)
	addProjectFlag(rootCmd)
}

// initConfig reads in the config file and environment variables if set
func initConfig() {
	viper.SetDefault("project", ".")
	viper.SetDefault("zenodo", "https://zenodo.org")
	viper.SetDefault("dataverse", "")
	viper.SetDefault("cache", "")

	if cfg := os.Getenv("DATAPROV_CONFIG"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.dataprov")
		viper.AddConfigPath("/etc/dataprov")
		viper.SetConfigName("dataprov")
	}

	viper.SetEnvPrefix("dataprov")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	}
}
