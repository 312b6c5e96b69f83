/*
Copyright 2024 Blnk Finance Authors.

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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/paymatch/paymatch"
	"github.com/paymatch/paymatch/config"
	"github.com/paymatch/paymatch/database"
	"github.com/paymatch/paymatch/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Paymatch wraps the root cobra command.
type Paymatch struct {
	cmd *cobra.Command
}

// paymatchInstance carries the engine and configuration shared by subcommands.
type paymatchInstance struct {
	paymatch *paymatch.Paymatch
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the engine before any command runs.
func preRun(app *paymatchInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newPaymatch, err := setupPaymatch(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.paymatch = newPaymatch
		app.cnf = cnf
		return nil
	}
}

func setupPaymatch(cfg *config.Configuration) (*paymatch.Paymatch, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newPaymatch, err := paymatch.NewPaymatch(db)
	if err != nil {
		return nil, fmt.Errorf("error creating paymatch: %v", err)
	}
	return newPaymatch, nil
}

func NewCLI() *Paymatch {
	var configFile string
	p := &paymatchInstance{}

	var rootCmd = &cobra.Command{
		Use:   "paymatch",
		Short: "UPI payment SMS matching engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./paymatch.json", "Configuration file for paymatch")
	rootCmd.PersistentPreRunE = preRun(p, &configFile)

	rootCmd.AddCommand(serverCommands(p))
	rootCmd.AddCommand(workerCommands(p))
	rootCmd.AddCommand(migrateCommands(p))
	rootCmd.AddCommand(deviceCommands(p))

	return &Paymatch{cmd: rootCmd}
}

func (w Paymatch) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
