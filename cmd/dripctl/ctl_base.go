package main

import (
	"fmt"
	"sort"
	"strings"
)

var descriptions = map[string]string{
	"info":     "Show token and faucet parameters",
	"use":      "use <address>: set the default address for queries",
	"whoami":   "Print the current caller",
	"balance":  "balance [address]: token balance",
	"claim":    "Request tokens from the faucet for the signer",
	"status":   "status [address]: claim status and cooldown",
	"transfer": "transfer <to> <amount>: send tokens from the signer",
	"pause":    "Pause the faucet (owner only)",
	"unpause":  "Resume the faucet (owner only)",
	"keygen":   "keygen [keyfile]: generate a mnemonic and sign with it",
	"recover":  "recover <mnemonic words...>: sign with the key of a mnemonic",
	"load":     "load <keyfile>: sign with a PEM key file",
	"help":     "Show available commands",
	"exit":     "Exit the program",
}

func Usage() string {
	keys := make([]string, 0, len(descriptions))
	for k := range descriptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("\t%s: %s\r\n", k, descriptions[k]))
	}
	return strings.Join(lines, "")
}

func completerItems() []string {
	keys := make([]string, 0, len(descriptions))
	for k := range descriptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
