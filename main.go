package main

import "github.com/Potenup-community/backend-sub002/cmd"

func main() {
	cmd.Execute()
}
