package main

import (
	"os"

	"github.com/triagekit/resume-triage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
