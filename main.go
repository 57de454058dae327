package main

import "github.com/Layr-Labs/chainwatch/cmd"

func main() {
	cmd.Execute()
}
