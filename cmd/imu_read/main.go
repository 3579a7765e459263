// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// imu_read initializes the MPU-9250 with the init defaults and prints
// readouts straight from the driver.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/inertial_i2c/internal/cli"
	"github.com/relabs-tech/inertial_i2c/internal/config"
	"github.com/relabs-tech/inertial_i2c/internal/sensors/mpu9250"
)

func main() {
	var count int
	cmd := cli.NewCommand("imu_read", "Initialize the MPU-9250 and print readouts",
		func(ctx context.Context, cfg *config.Config) error {
			return read(ctx, cfg, count)
		})
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of readouts, 0 for no limit")
	cli.Execute(cmd)
}

func read(ctx context.Context, cfg *config.Config, count int) error {
	dev, err := mpu9250.Open(cfg.IMUI2CBus, &mpu9250.Opts{Addr: cfg.IMUI2CAddr})
	if err != nil {
		return err
	}
	defer dev.Close()
	log.WithField("dev", dev.String()).Info("initialized")

	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()
	for i := 0; count == 0 || i < count; i++ {
		var e physic.Env
		if err := dev.Sense(&e); err != nil {
			return err
		}
		g, err := dev.ReadGyroscope()
		if err != nil {
			return err
		}
		a, err := dev.ReadAccelerometer()
		if err != nil {
			return err
		}
		m, err := dev.ReadMagnetometer()
		if err != nil {
			log.WithError(err).Warn("magnetometer")
		}
		fmt.Printf("temp=%-8s gyro=%6d %6d %6d  accel=%6d %6d %6d  mag=%6d %6d %6d\n",
			e.Temperature, g.X, g.Y, g.Z, a.X, a.Y, a.Z, m.X, m.Y, m.Z)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
