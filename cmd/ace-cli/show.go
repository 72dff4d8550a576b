package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ace-go/pkg/config"
	"github.com/XiaoConstantine/ace-go/pkg/playbook"
)

var showConfigPath string

func init() {
	showCmd.Flags().StringVarP(&showConfigPath, "config", "c", "ace.yaml", "path to the YAML config file")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted playbook and its stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(showConfigPath)
		if err != nil {
			return err
		}

		store, err := openStore(cfg.Playbook)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.Load()
		if err != nil {
			return err
		}
		if snap == nil {
			fmt.Println("(no playbook saved yet)")
			return nil
		}

		pb := playbook.New()
		pb.Restore(*snap)
		fmt.Println(pb.Stats())
		fmt.Println()
		fmt.Print(pb.Render())
		return nil
	},
}
