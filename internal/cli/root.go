package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "predsrc",
	Short: "predsrc - render contract predicates as source expressions",
	Long: `predsrc finds the predicates passed to design-by-contract decorators in
Python code and renders each one as a short, single-line expression, the way a
contract violation message would show it.

  predsrc extract account.py:12   render one predicate
  predsrc scan src/               list every predicate under a directory
  predsrc report                  show the last stored scan`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is DIR/.predsrc/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initEnv loads a .env file from the working directory so PREDSRC_* settings
// can live next to the project.
func initEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}
	if verbose {
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	}
}
