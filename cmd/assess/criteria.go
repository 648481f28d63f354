package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/procedure-assess/criteria"
)

func newCriteriaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "Inspect criteria specs",
	}

	var dir string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the available criteria specs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range criteria.NewLoader(dir).List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	list.Flags().StringVar(&dir, "criteria-dir", "", "directory of criteria specs overriding the built-in ones")

	show := &cobra.Command{
		Use:   "show NAME",
		Short: "Print a criteria spec as it is shown to the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := criteria.NewLoader(dir).Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Text())
			return nil
		},
	}
	show.Flags().StringVar(&dir, "criteria-dir", "", "directory of criteria specs overriding the built-in ones")

	cmd.AddCommand(list, show)
	return cmd
}
