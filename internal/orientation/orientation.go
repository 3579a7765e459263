package orientation

import (
	"math"

	"github.com/relabs-tech/inertial_i2c/internal/imu"
)

// Pose is the canonical representation of orientation for your app.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

const radToDeg = 180.0 / math.Pi

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is set to 0.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad, pitchRad := tilt(ax, ay, az)
	return Pose{
		Roll:  rollRad * radToDeg,
		Pitch: pitchRad * radToDeg,
	}
}

func tilt(ax, ay, az float64) (roll, pitch float64) {
	return math.Atan2(ay, az), math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
}

// ComputePose computes roll and pitch from the accelerometer and, when the
// magnetometer reading is valid, a tilt compensated heading in [0, 360).
//
// The AK8963 axes differ from the accelerometer's: X and Y are swapped and Z
// points the other way.
func ComputePose(raw imu.IMURaw) Pose {
	ax, ay, az := float64(raw.Ax), float64(raw.Ay), float64(raw.Az)
	roll, pitch := tilt(ax, ay, az)
	p := Pose{Roll: roll * radToDeg, Pitch: pitch * radToDeg}
	if !raw.MagValid {
		return p
	}
	mx, my, mz := float64(raw.My), float64(raw.Mx), -float64(raw.Mz)
	p.Yaw = heading(mx, my, mz, roll, pitch)
	return p
}

// heading projects the field onto the horizontal plane and returns degrees
// clockwise from magnetic north.
func heading(mx, my, mz, roll, pitch float64) float64 {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	xh := mx*cp + my*sr*sp + mz*cr*sp
	yh := my*cr - mz*sr
	yaw := math.Atan2(-yh, xh) * radToDeg
	if yaw < 0 {
		yaw += 360
	}
	if yaw >= 360 {
		yaw -= 360
	}
	return yaw
}
