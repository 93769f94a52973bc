package main

import "github.com/corekv/corekv/cmd"

func main() {
	cmd.Execute()
}
