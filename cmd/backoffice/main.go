package main

import "github.com/matthieukhl/backoffice/internal/cmd"

func main() {
	cmd.Execute()
}
