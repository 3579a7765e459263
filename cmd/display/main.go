package main

import (
	"github.com/relabs-tech/inertial_i2c/internal/app"
	"github.com/relabs-tech/inertial_i2c/internal/cli"
)

func main() {
	cli.Execute(cli.NewCommand("display",
		"Show the latest IMU sample from MQTT on an SSD1306 OLED",
		app.RunDisplay))
}
