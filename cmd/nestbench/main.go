package main

import "github.com/fraeswerk/nestkit/cmd/nestbench/commands"

func main() {
	commands.Execute()
}
