package main

import (
	"luciPanel/app"
	"luciPanel/flags"
)

func main() {
	cfg := flags.Flags()

	// Запуск клиента панели
	app.Run(cfg)
}
