package main

import (
	"github.com/vongdev/E-learning--sub001/cmd/server"
)

func main() {
	server.NewServer().Run()
}
