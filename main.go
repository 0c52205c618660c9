package main

import "dimi/cmd"

func main() {
	cmd.Execute()
}
