package main

import "github.com/yashdiniz/focusa-remind/cmd/remind/cli"

func main() {
	cli.Execute()
}
