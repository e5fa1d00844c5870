package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"credvault/internal/token"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [input]",
	Short: "Decode a share token without verifying it",
	Long:  "Decodes a base64 share token and prints its contents. Input can be the token itself, a share link, a file path, or piped via stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

// resolveToken accepts either a raw serialized token or a share link and
// returns the serialized token.
func resolveToken(input string) (string, error) {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		return token.TokenFromLink(input)
	}
	return input, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	input := ""
	if len(args) > 0 {
		input = args[0]
	}
	raw, err := readInput(input)
	if err != nil {
		return err
	}
	serialized, err := resolveToken(raw)
	if err != nil {
		return err
	}

	tok, err := token.Deserialize(serialized)
	if err != nil {
		return fmt.Errorf("decoding token: %w", err)
	}
	printToken(tok)
	return nil
}
