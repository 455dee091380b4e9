package main

import "github.com/KaramelBytes/shipsight/cmd"

func main() {
	cmd.Execute()
}
