package main

import (
	"log"

	"github.com/thiagokokada/incrlint/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("incrlint: %v", err)
	}
}
