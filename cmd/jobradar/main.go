package main

import (
	"os"

	"jobradar.fyi/jobradar/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
