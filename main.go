package main

import "github.com/adeptex/whispers/cmd/whispers"

func main() { whispers.Execute() }
