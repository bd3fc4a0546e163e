package main

import "trendaryo/cmd"

func main() {
	cmd.Execute()
}
