package gcm

// AndroidDeviceInfo contains the device identity sent during checkin and
// registration, mimicking a real Android device.
type AndroidDeviceInfo struct {
	// BuildFingerprint is the Android build fingerprint
	// Format: brand/product/device:version/build_id/build_number:user/release-keys
	BuildFingerprint string

	// SDKVersion is the Android SDK version (e.g., 33 for Android 13)
	SDKVersion int

	// GMSVersion is the installed Google Play services version. Zero means
	// Play services is not installed.
	GMSVersion int

	// ServicesDisabled marks Play services as installed but disabled.
	ServicesDisabled bool

	// Device is the device codename (e.g., "panther" for Pixel 7)
	Device string

	// Model is the device model name (e.g., "Pixel 7")
	Model string

	// Hardware is the hardware name (Build.HARDWARE), usually same as Device
	Hardware string

	// Brand is the device brand (Build.BRAND), e.g. "google"
	Brand string

	// Manufacturer is the device manufacturer (Build.MANUFACTURER), e.g. "Google"
	Manufacturer string

	// Product is the product name (Build.PRODUCT), usually same as Device
	Product string

	Bootloader string
	Radio      string

	// BuildTime is Build.TIME / 1000, seconds since epoch
	BuildTime int64
}

// DefaultAndroidDevice returns a Pixel 7 profile built from a public factory
// image (TQ3A.230805.001, Android 13) and a Play services release of the
// same period.
func DefaultAndroidDevice() AndroidDeviceInfo {
	return AndroidDeviceInfo{
		BuildFingerprint: "google/panther/panther:13/TQ3A.230805.001/10316531:user/release-keys",
		SDKVersion:       33,
		GMSVersion:       241516037,

		Device:   "panther",
		Model:    "Pixel 7",
		Hardware: "panther",

		Brand:        "google",
		Manufacturer: "Google",
		Product:      "panther",

		Bootloader: "slider-1.2-9819352",
		Radio:      "g5300g-230511-230925-B-10484716",

		BuildTime: 1691193600,
	}
}
