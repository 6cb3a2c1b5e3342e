package main

import "canales-taurinos/cmd/refresh/cmd"

func main() {
	cmd.Execute()
}
