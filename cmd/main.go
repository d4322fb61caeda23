package main

import (
	cmd "github.com/kerbaras/tankobon/cmd/tankobon"
)

func main() {
	cmd.Execute()
}
