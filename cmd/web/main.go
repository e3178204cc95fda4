package main

import "smartdalali_backend/internal/app"

func main() {
	app.Run()
}
