package main

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/venus-fvm/pkg/config"
)

func configPath(cctx *cli.Context) (string, error) {
	path := cctx.Path(configFlag)
	if path == "" {
		return "", nil
	}
	return homedir.Expand(path)
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	path, err := configPath(cctx)
	if err != nil || path == "" {
		return config.NewDefaultConfig(), err
	}
	return config.ReadFile(path)
}

func requireConfigPath(cctx *cli.Context) (string, error) {
	path, err := configPath(cctx)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("--config is required")
	}
	return path, nil
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "manage the config file",
	Subcommands: []*cli.Command{
		{
			Name:  "init",
			Usage: "write the default config to --config",
			Action: func(cctx *cli.Context) error {
				path, err := requireConfigPath(cctx)
				if err != nil {
					return err
				}
				return config.NewDefaultConfig().WriteFile(path)
			},
		},
		{
			Name:      "get",
			Usage:     "print a config value",
			ArgsUsage: "<key>",
			Action: func(cctx *cli.Context) error {
				if cctx.NArg() != 1 {
					return errors.New("expected a single key")
				}
				cfg, err := loadConfig(cctx)
				if err != nil {
					return err
				}
				v, err := cfg.Get(cctx.Args().First())
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cctx.App.Writer, string(out))
				return err
			},
		},
		{
			Name:      "set",
			Usage:     "set a config value given in toml",
			ArgsUsage: "<key> <value>",
			Action: func(cctx *cli.Context) error {
				if cctx.NArg() != 2 {
					return errors.New("expected a key and a value")
				}
				path, err := requireConfigPath(cctx)
				if err != nil {
					return err
				}
				cfg, err := config.ReadFile(path)
				if err != nil {
					return err
				}
				if _, err := cfg.Set(cctx.Args().Get(0), cctx.Args().Get(1)); err != nil {
					return err
				}
				return cfg.WriteFile(path)
			},
		},
	},
}
