package main

import "github.com/KaramelBytes/nearlimit-cli/cmd"

func main() {
	cmd.Execute()
}
