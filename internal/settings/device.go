package settings

import "regexp"

// MobileBreakpoint is the viewport width below which panels stack vertically.
const MobileBreakpoint = 800

var mobileUA = regexp.MustCompile(`(?i)Android|BlackBerry|iPhone|iPad|iPod|Opera Mini|IEMobile|WPDesktop`)

// IsMobile reports whether the device looks like a phone or tablet.
func IsMobile(userAgent string, width int) bool {
	return mobileUA.MatchString(userAgent) || (width > 0 && width < MobileBreakpoint)
}

// DetectDirection maps a device to its panel layout.
func DetectDirection(userAgent string, width int) Direction {
	if IsMobile(userAgent, width) {
		return Vertical
	}
	return Horizontal
}

// ApplyDevice is the device detector's write path into the store.
func (s *Store) ApplyDevice(userAgent string, width int) Settings {
	next, _ := s.SetDirection(DetectDirection(userAgent, width))
	return next
}
