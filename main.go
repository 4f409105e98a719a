package main

import "github.com/manyoso/GPT4ALL-collector/cmd"

func main() {
	cmd.Execute()
}
