package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/drip/config"
	"github.com/drip/core/address"
	"github.com/drip/internal/client"
)

func main() {
	url := flag.String("url", fmt.Sprintf("http://127.0.0.1:%d", config.DefaultRpcPort), "node rpc url")
	addr := flag.String("addr", "", "caller address")
	keyFile := flag.String("key", "", "PEM key file to sign with")
	configPath := flag.String("config", "", "node config whose owner mnemonic signs")
	flag.Parse()

	var caller address.Address
	if *addr != "" {
		a, err := address.ParseHex(*addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -addr: %v\n", err)
			os.Exit(1)
		}
		caller = a
	}
	console := NewConsole(client.New(*url), caller, os.Stdout)

	switch {
	case *keyFile != "":
		key, err := loadKey(*keyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -key: %v\n", err)
			os.Exit(1)
		}
		console.SetKey(key)
	case *configPath != "":
		cfg, err := config.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		key, err := cfg.OwnerKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "No owner key: %v\n", err)
			os.Exit(1)
		}
		console.SetKey(key)
	}

	// One-shot mode: dripctl -url ... balance 0x..
	if flag.NArg() > 0 {
		if _, err := console.Exec(strings.Join(flag.Args(), " ")); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(descriptions))
	for _, k := range completerItems() {
		items = append(items, readline.PcItem(k))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "drip> ",
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	fmt.Printf("Connected to %s, use help to see available commands\n", *url)
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF, readline.ErrInterrupt
			break
		}
		quit, err := console.Exec(line)
		if err != nil {
			fmt.Println("Error:", err)
		}
		if quit {
			break
		}
	}
}
