package main

import (
	"fmt"

	"github.com/pevans/coinfeed/config"
	"github.com/spf13/cobra"
)

func newInitCommand(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Initializing coinfeed...")
			fmt.Println()

			path, created, err := config.WriteDefaultFile(c.configPath, force)
			if err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			if created {
				fmt.Printf("  ✓ Config file: %s\n", path)
			} else {
				fmt.Printf("  Config file: %s (already exists)\n", path)
			}

			if err := c.open(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("  ✓ Store: %s %s\n", c.cfg.Store.Type, c.cfg.Store.DSN)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
