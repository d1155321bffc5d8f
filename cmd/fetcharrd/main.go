package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fetcharr/fetcharr/internal/config"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file (searched if omitted)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fetcharrd %s\n", version)
		os.Exit(0)
	}

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.Discover(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := runServer(path); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
