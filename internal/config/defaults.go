package config

import "time"

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "portfolio.yml"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:              8080,
		DataDir:           "data",
		LogLevel:          "info",
		DefaultImageURL:   "https://i.ibb.co/DHbVHgDC/profile-pic.jpg",
		MaxImageBytes:     5 << 20,
		MaxUploadBytes:    3 << 20,
		ImageCheckTimeout: 10 * time.Second,
		SMTPHost:          "smtp.gmail.com",
		SMTPPort:          "587",
		AdminUser:         "admin",
	}
}
