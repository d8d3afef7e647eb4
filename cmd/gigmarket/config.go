package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/gigmarket/internal/config"
	apperrors "github.com/vango-dev/gigmarket/internal/errors"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gigmarket.json",
	}
	cmd.AddCommand(configInitCmd(), configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default gigmarket.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(dir) && !force {
				return apperrors.New(apperrors.ErrConfigExists).
					WithDetail(filepath.Join(dir, config.ConfigFileName) + " already exists").
					WithSuggestion("Pass --force to overwrite it")
			}
			path := filepath.Join(dir, config.ConfigFileName)
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success("Created %s", path)
			info("Set backend.url before running 'gigmarket serve'")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the config to")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")

	return cmd
}

func configShowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and environment overrides
are applied. Secrets are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(dir)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(masked(cfg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory containing gigmarket.json")

	return cmd
}

// masked returns a copy of cfg with credentials hidden.
func masked(cfg *config.Config) config.Config {
	out := *cfg
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&out.Upload.AccessKey)
	mask(&out.Upload.SecretKey)
	mask(&out.Search.APIKey)
	if u, err := url.Parse(out.Session.RedisURL); err == nil && out.Session.RedisURL != "" {
		out.Session.RedisURL = u.Redacted()
	}
	return out
}
