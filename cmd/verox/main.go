package main

import (
	"os"

	"verox/go-wallet/cmd/verox/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
