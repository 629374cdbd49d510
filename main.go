package main

import "github.com/Project-Sylos/Canopy/cmd"

func main() {
	cmd.Execute()
}
