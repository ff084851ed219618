package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		want      string
	}{
		{
			name:      "android phone",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Mobile Safari/537.36",
			want:      DeviceMobile,
		},
		{
			name:      "iphone",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Safari",
			want:      DeviceMobile,
		},
		{
			name:      "android tablet without mobile token",
			userAgent: "Mozilla/5.0 (Linux; Android 13; SM-X910) AppleWebKit/537.36 Safari/537.36",
			want:      DeviceTablet,
		},
		{
			name:      "generic tablet token",
			userAgent: "Mozilla/5.0 (Tablet; rv:109.0) Gecko/109.0 Firefox/119.0",
			want:      DeviceTablet,
		},
		{
			name:      "desktop chrome",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
			want:      DeviceDesktop,
		},
		{
			name:      "case insensitive",
			userAgent: "SOMETHING MOBILE SOMETHING",
			want:      DeviceMobile,
		},
		{
			name:      "empty agent",
			userAgent: "",
			want:      DeviceDesktop,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyDevice(tc.userAgent))
		})
	}
}
