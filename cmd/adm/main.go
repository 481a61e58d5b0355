// Command adm is the learnpath administration CLI.
package main

import (
	"os"

	"learnpath/cmd/adm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
