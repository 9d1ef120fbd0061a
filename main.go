package main

import (
	"github.com/joho/godotenv"
	"github.com/timvw/plan-judge/cmd"
)

func main() {
	// A missing .env file is fine; real env vars still apply.
	_ = godotenv.Load()
	cmd.Execute()
}
