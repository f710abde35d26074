package main

import "spendcast/internal/cli"

func main() {
	cli.LoadEnvFile()
	Execute()
}
