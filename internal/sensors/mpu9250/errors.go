package mpu9250

import "errors"

var (
	// ErrBus is returned when a bus transaction fails or the bus cannot be
	// found.
	ErrBus = errors.New("mpu9250: bus transaction failed")
	// ErrIdentity is returned when WHO_AM_I (MPU) or WIA (AK8963) does not
	// hold the expected value.
	ErrIdentity = errors.New("mpu9250: unexpected chip identity")
	// ErrNotInitialized is returned by every call on a device whose last
	// initialization failed.
	ErrNotInitialized = errors.New("mpu9250: device not initialized")
)
