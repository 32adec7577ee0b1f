package main

import "monsterlab/cli"

func main() {
	cli.Execute()
}
