package main

import (
	"fmt"
	"os"

	"github.com/blocknetdx/xlited/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := cli.NewApp()

	app.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	app.Name = "xlited"
	app.Usage = "Light wallet daemon for the Blocknet XLite wallets"
	app.Commands = append(
		app.Commands,
		startCmd,
		balanceCmd,
		transactionsCmd,
		receiveCmd,
		unspentCmd,
		sendCmd,
	)
	app.DefaultCommand = startCmd.Name

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

// getConfig loads the config from the environment and builds all services.
// Callers must Close the returned config.
func getConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	log.Debugf("config: %s", cfg)

	if err := cfg.Validate(); err != nil {
		cfg.Close()
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	return cfg, nil
}
