package main

import "hunter/cmd"

func main() {
	cmd.Execute()
}
