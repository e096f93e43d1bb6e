// venus-fvm runs messages against a throwaway machine and manages its config.
package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/venus-fvm/pkg/constants"
)

var log = logging.Logger("venus-fvm")

const configFlag = "config"

func newApp() *cli.App {
	return &cli.App{
		Name:    "venus-fvm",
		Usage:   "execute messages on the filecoin virtual machine",
		Version: constants.UserVersion(),
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    configFlag,
				Usage:   "path of the toml config; defaults are used when unset",
				EnvVars: []string{"VENUS_FVM_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			execCmd,
			configCmd,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
