package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printJSON(payload any) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		printError(err.Error())
		return
	}
	neutral.Println(string(raw))
}

func printAccount(account map[string]any) {
	accent.Printf("Account %v", account["id"])
	if name, ok := account["display_name"].(string); ok && name != "" {
		accent.Printf(" (%s)", name)
	}
	fmt.Println()
	neutral.Printf("  balance: %v  points: %v  price: %v\n",
		account["balance"], account["points"], account["price"])
	if owner, ok := account["owner_id"]; ok && owner != nil {
		warn.Printf("  owned by %v\n", owner)
	} else {
		success.Println("  free")
	}
	if until, ok := account["shield_until"]; ok && until != nil {
		warn.Printf("  shield until %v\n", until)
	}
}
