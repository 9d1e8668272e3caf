package main

import (
	"os"

	"github.com/joeycumines/go-wakeonwrite/cmd/wakeonwrite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
