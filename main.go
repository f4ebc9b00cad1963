package main

import "github.com/Akshat-Diwedi/nuke-kv/cmd"

func main() {
	cmd.Execute()
}
