package main

import (
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/server"
)

func main() {
	server.Run()
}
