package main

import (
	"insiderkg/internal/server"
	"insiderkg/internal/util"
	"insiderkg/pkg/logger"
	"insiderkg/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
