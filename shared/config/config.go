package config

import "os"

// Config holds the application-level settings shared by the services.
type Config struct {
	// JWT signing secret for locally issued tokens.
	JWTSecret string

	// System default Razorpay key pair, used when a consultancy has no
	// gateway credentials of its own.
	RazorpayKeyID     string
	RazorpayKeySecret string

	// SES email delivery.
	AWSRegion  string
	MailSender string

	// Kafka broker for payment events.
	KafkaBroker string
}

// Load reads the application configuration from environment variables.
func Load() *Config {
	return &Config{
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", "rzp_test_key"),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", "rzp_test_secret"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		MailSender:        getEnv("MAIL_SENDER", "noreply@hostelpay.local"),
		KafkaBroker:       getEnv("KAFKA_BROKER", "localhost:9092"),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
