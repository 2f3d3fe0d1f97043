package main

import (
	"fmt"

	"github.com/celestia-astro/astroprobe/config"
	"github.com/celestia-astro/astroprobe/credentials"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

func newShowConfigCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-config",
		Short: "Print the effective configuration with secrets hidden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, *configFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# config file: %s\n", valueOr(cfg.File, "(none)"))
			cmd.Root().PersistentFlags().VisitAll(func(f *pflag.Flag) {
				if f.Changed {
					fmt.Fprintf(out, "# --%s = %s\n", f.Name, f.Value.String())
				}
			})
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(redactConfig(cfg)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	return cmd
}

func redactConfig(cfg config.Config) config.Config {
	hide := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	hide(&cfg.Client.Password)
	hide(&cfg.Admin.Password)
	hide(&cfg.WebhookSecret)
	if cfg.UserStore.DSN != "" {
		cfg.UserStore.DSN = credentials.RedactDSN(cfg.UserStore.DSN)
	}
	return cfg
}
