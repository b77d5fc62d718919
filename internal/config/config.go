package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string

	// Vapi outbound calling
	VapiAPIKey        string
	VapiAssistantID   string
	VapiPhoneNumberID string

	// Field extraction
	OpenAIAPIKey string
	OpenAIModel  string

	// Intake defaults
	UserName            string
	DefaultUserPhone    string
	DefaultTargetNumber string

	// Negotiation prototype
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioToNumber   string
	TwimlURL         string
	PolicyServiceURL string

	// Storage; empty session path keeps sessions in memory
	SessionDBPath string
	TaskDBPath    string

	// Vendor directory: name -> phone number
	VendorFile string
	Vendors    map[string]string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8000"),
		Environment:         getEnv("ENV", "development"),
		VapiAPIKey:          getEnv("VAPI_API_KEY", ""),
		VapiAssistantID:     getEnv("VAPI_ASSISTANT_ID", ""),
		VapiPhoneNumberID:   getEnv("VAPI_PHONE_NUMBER_ID", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		UserName:            getEnv("USER_NAME", "Customer"),
		DefaultUserPhone:    getEnv("DEFAULT_USER_PHONE", "+16674190027"),
		DefaultTargetNumber: getEnv("DEFAULT_TARGET_NUMBER", "+16674190027"),
		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioToNumber:      getEnv("TEST_TO_NUMBER", ""),
		TwimlURL:            getEnv("TWIML_URL", ""),
		PolicyServiceURL:    getEnv("POLICY_SERVICE_URL", "http://localhost:8001"),
		SessionDBPath:       getEnv("SESSION_DB_PATH", ""),
		TaskDBPath:          getEnv("TASK_DB_PATH", "data/tasks.db"),
		VendorFile:          getEnv("VENDOR_FILE", ""),
	}

	vendors, err := loadVendors(cfg.VendorFile)
	if err != nil {
		return nil, err
	}
	cfg.Vendors = vendors

	// Validate required environment variables
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"DEFAULT_TARGET_NUMBER": c.DefaultTargetNumber,
		"DEFAULT_USER_PHONE":    c.DefaultUserPhone,
	}

	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing required environment variable: %s", name)
		}
	}

	return nil
}

// defaultVendors is the built-in vendor directory used when no vendor file
// is configured.
var defaultVendors = map[string]string{
	"walmart": "+16674190027",
}

func loadVendors(path string) (map[string]string, error) {
	if path == "" {
		return defaultVendors, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor file: %w", err)
	}
	var doc struct {
		Vendors map[string]string `yaml:"vendors"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse vendor file: %w", err)
	}
	if len(doc.Vendors) == 0 {
		return defaultVendors, nil
	}
	return doc.Vendors, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
