package main

import "github.com/gatherguru/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
