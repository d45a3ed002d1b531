package main

import (
	"idgate.io/infrastructure"
	"idgate.io/infrastructure/env"
)

func init() {
	env.LoadEnv()
}

func main() {
	infrastructure.StartServer()
}
