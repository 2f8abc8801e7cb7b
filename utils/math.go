package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// WrapAngleRad wraps an angle in radians to the interval (-pi, pi].
func WrapAngleRad(ang float64) float64 {
	wrapped := math.Mod(ang, 2*math.Pi)
	if wrapped > math.Pi {
		wrapped -= 2 * math.Pi
	} else if wrapped <= -math.Pi {
		wrapped += 2 * math.Pi
	}
	return wrapped
}

// Math.pow( x, 2 ) is slow, this is faster
func Square(n float64) float64 {
	return n * n
}

// CubeRoot returns the cube root of x.
func CubeRoot(x float64) float64 {
	p := 1.0 / 3.0
	return math.Pow(x, p)
}

// Clamp bounds value to the interval [minimum, maximum].
func Clamp(value, minimum, maximum float64) float64 {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}

// Sign returns -1, 0, or 1 depending on the sign of x.
func Sign(x float64) float64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}
