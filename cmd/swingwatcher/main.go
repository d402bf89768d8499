package main

import (
	"price-swing-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
