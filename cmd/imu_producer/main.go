// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"github.com/relabs-tech/inertial_i2c/internal/app"
	"github.com/relabs-tech/inertial_i2c/internal/cli"
)

func main() {
	cli.Execute(cli.NewCommand("imu_producer",
		"Sample the MPU-9250 and publish raw samples and poses to MQTT",
		app.RunInertialProducer))
}
