package main

import "github.com/redactyl/dataextractor/cmd/dataextractor"

func main() { dataextractor.Execute() }
