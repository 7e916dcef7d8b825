package main

import "github.com/dloez/tag-track/cmd"

func main() {
	cmd.Execute()
}
