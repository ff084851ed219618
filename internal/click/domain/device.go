package domain

import "strings"

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var mobileMarkers = []string{"mobile", "iphone"}

// Android without a "Mobile" token is how vendors label tablets.
var tabletMarkers = []string{"tablet", "ipad", "android"}

// ClassifyDevice buckets a user-agent string by case-insensitive
// substring match. Mobile markers win over tablet markers; anything
// else is desktop.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return DeviceMobile
		}
	}
	for _, marker := range tabletMarkers {
		if strings.Contains(ua, marker) {
			return DeviceTablet
		}
	}
	return DeviceDesktop
}
