package auth

import "time"

func SetClock(v *CachingVerifier, now func() time.Time) {
	v.now = now
}
