package main

import (
	"context"
	"os"

	"github.com/relabs-tech/inertial_i2c/internal/app"
	"github.com/relabs-tech/inertial_i2c/internal/cli"
	"github.com/relabs-tech/inertial_i2c/internal/config"
)

func main() {
	cli.Execute(cli.NewCommand("console_mqtt",
		"Print poses and IMU samples received over MQTT",
		func(ctx context.Context, cfg *config.Config) error {
			return app.RunConsoleMQTT(ctx, cfg, os.Stdout)
		}))
}
