package main

import "birthday-mate-backend/cmd"

func main() {
	cmd.Run()
}
