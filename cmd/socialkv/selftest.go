package main

import (
	"github.com/spf13/cobra"

	"socialkv/internal/database"
)

func (c *command) initSelfTestCmd() {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Round-trip a few test keys through the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			driver, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer driver.Close()

			if err := driver.Ping(ctx); err != nil {
				return err
			}
			res, err := database.SelfTest(ctx, driver)
			if err != nil {
				return err
			}
			c.log.WithField("backend", c.cfg.Backend).Info("self test passed")
			return printJSON(cmd, res)
		},
	}
	c.root.AddCommand(cmd)
}
