package main

import "github.com/effective-security/mcpchat/cmd/mcpchat/cli"

func main() {
	cli.Execute()
}
