package config

// Default returns the canonical runtime configuration used when no usable file is present.
func Default() Config {
	return Config{
		XOffset:        3000,
		YOffset:        -120,
		TriggerMode:    TriggerSound,
		ImageSet:       "default",
		ScaleFactor:    0.5,
		ImagesDir:      "",
		ResetDelayMS:   100,
		SoundThreshold: 0.01,
		SoundSink:      "default",
	}
}
