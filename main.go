package main

import "github.com/Shivay00001/RemotePilot/cmd"

func main() {
	cmd.Execute()
}
