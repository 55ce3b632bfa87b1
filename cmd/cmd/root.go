/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wagomu-no-sunaba/etude-rag2/cmd/handlers"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "draftgen",
	Short: "draftgen generates first-draft recruiting articles from raw material",
	Long: `draftgen drives a retrieval-and-generation pipeline that turns a block of
raw input material into a first-draft recruiting article, using a corpus of
previously published articles as reference material and house style.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(handlers.NewServeCmd(&cfgFile))
	rootCmd.AddCommand(handlers.NewMigrateCmd(&cfgFile))
	rootCmd.AddCommand(handlers.NewSearchCmd(&cfgFile))
	rootCmd.AddCommand(handlers.NewVerifyCmd(&cfgFile))
}
