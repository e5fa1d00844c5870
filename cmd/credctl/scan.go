package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"credvault/internal/token"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image.png>",
	Short: "Decode a share token from a QR code image",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	serialized, err := token.ScanQRFile(args[0])
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}
	tok, err := token.Deserialize(serialized)
	if err != nil {
		return fmt.Errorf("decoding token: %w", err)
	}
	printToken(tok)
	return nil
}
