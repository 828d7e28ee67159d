package main

import "github.com/icrc151/ledgerd/internal/cli"

func main() {
	cli.Execute()
}
