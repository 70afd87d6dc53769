// Package config provides configuration for the server binary using
// command-line flags, environment variables, and an optional JSON config
// file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string.
	DatabaseDSN string

	// VAPIDKeyFile is the path to the JSON file holding the VAPID key
	// pair, as written by tools/vapidgen.
	VAPIDKeyFile string

	// Contact is the subscriber contact (mailto or URL) sent with VAPID
	// authenticated pushes.
	Contact string

	// AdminToken protects the push broadcast endpoint. Broadcasting is
	// disabled when empty.
	AdminToken string

	// Config is the path to the config file.
	Config string
}

// VAPIDKeys is the key pair consumed from VAPIDKeyFile.
type VAPIDKeys struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.VAPIDKeyFile, "vapid", "vapid.json", "path to VAPID key pair file")
	flag.StringVar(&options.Contact, "contact", "mailto:admin@example.com", "VAPID subscriber contact")
	flag.StringVar(&options.AdminToken, "token", "", "bearer token for the push broadcast endpoint")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct
// containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if keyFile := os.Getenv("VAPID_KEY_FILE"); keyFile != "" {
		options.VAPIDKeyFile = keyFile
	}
	if contact := os.Getenv("VAPID_CONTACT"); contact != "" {
		options.Contact = contact
	}
	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		options.AdminToken = token
	}

	return options
}

// LoadVAPIDKeys reads the VAPID key pair from the given file.
func LoadVAPIDKeys(path string) (VAPIDKeys, error) {
	var keys VAPIDKeys
	data, err := os.ReadFile(path)
	if err != nil {
		return keys, err
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return keys, err
	}
	return keys, nil
}
