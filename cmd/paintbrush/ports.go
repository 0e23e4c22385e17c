package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/paintbrush/internal/serialmux"
)

// NewPortsCommand lists serial ports the shield might be on.
func NewPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialmux.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				cmd.Println("no serial ports found")
			}
			for _, p := range ports {
				cmd.Println(p)
			}
			return nil
		},
	}
}
