// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"github.com/relabs-tech/inertial_i2c/internal/app"
	"github.com/relabs-tech/inertial_i2c/internal/cli"
)

func main() {
	cli.Execute(cli.NewCommand("register_debug",
		"Serve the MPU-9250/AK8963 register debug tool over HTTP and WebSocket",
		app.RunRegisterDebug))
}
