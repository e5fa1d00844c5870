package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"credvault/internal/audit"
	auditstore "credvault/internal/audit/store"
	"credvault/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [input]",
	Short: "Run the verification pipeline on a share token",
	Long:  "Runs the signature and expiry checks on a share token locally. Without a server there is no registry to cross-check against, so an accepted token reports the embedded holder data only.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audit.NewRecorder(auditstore.NewInMemoryStore(), discard)
	verifier := verify.New(recorder)

	result, err := verifier.VerifyToken(cmd.Context(), serialized)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}
