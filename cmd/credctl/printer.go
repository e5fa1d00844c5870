package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"credvault/internal/token"
	"credvault/internal/verify"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printField(label, value string) {
	labelColor.Printf("  %-12s", label)
	fmt.Println(value)
}

func printToken(tok token.Token) {
	if jsonOutput {
		printJSON(tok)
		return
	}

	headerColor.Println("Share Token")
	headerColor.Println(strings.Repeat("─", 50))
	printField("Holder", fmt.Sprintf("%s (%s)", tok.HolderName, tok.HolderID))
	for k, v := range tok.Attributes {
		printField(k, v)
	}
	printField("Issued", time.UnixMilli(tok.IssuedAt).UTC().Format(time.RFC3339))

	expiry := tok.ExpiresAt()
	if time.Now().After(expiry) {
		errorColor.Printf("  %-12s%s (expired)\n", "Expires", expiry.UTC().Format(time.RFC3339))
	} else {
		printField("Expires", expiry.UTC().Format(time.RFC3339))
	}

	fmt.Println()
	headerColor.Printf("Claims (%d)\n", len(tok.Claims))
	for _, c := range tok.Claims {
		fmt.Printf("  %s: %s\n", labelColor.Sprint(c.Kind), c.Value)
		dimColor.Printf("    issued by %s on %s\n", c.Issuer, c.IssuedOn)
	}
}

func printResult(result verify.Result) {
	if jsonOutput {
		printJSON(result)
		return
	}

	headerColor.Println("Verification Result")
	headerColor.Println(strings.Repeat("─", 50))
	if result.Accepted() {
		successColor.Println("  ACCEPTED")
	} else {
		errorColor.Printf("  REJECTED (%s at stage %s)\n", result.Reason, result.Stage)
	}
	if result.HolderID != "" {
		printField("Holder", fmt.Sprintf("%s (%s)", result.HolderName, result.HolderID))
	}
	printField("Claims", fmt.Sprintf("%d", len(result.Claims)))
	for _, c := range result.Claims {
		fmt.Printf("    %s: %s\n", labelColor.Sprint(c.Kind), c.Value)
	}
}
