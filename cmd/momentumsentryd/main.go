package main

import (
	"log"

	"momentumsentry/app"
	"momentumsentry/config"
)

func main() {
	cfg := config.LoadFromEnv()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
