package models

// Device is a connected device or simulator reported by the toolchain's
// machine-readable device listing.
type Device struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TargetPlatform string `json:"platform"`
	PlatformType   string `json:"platform_type"`
	Emulator       bool   `json:"isEmulator"`
}
