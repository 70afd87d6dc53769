// Package main generates a VAPID key pair and writes it to a JSON file
// consumed by the server configuration.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/avdushin/pushdeck/internal/config"
)

func main() {
	out := flag.String("o", "vapid.json", "output path for the key pair")
	flag.Parse()

	keys, err := generate(*out)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("VAPID key pair written to %s\npublic key: %s\n", *out, keys.PublicKey)
}

// generate creates a fresh VAPID key pair and writes it to path with
// owner-only permissions.
func generate(path string) (config.VAPIDKeys, error) {
	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return config.VAPIDKeys{}, fmt.Errorf("generate keys: %w", err)
	}
	keys := config.VAPIDKeys{PublicKey: public, PrivateKey: private}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return config.VAPIDKeys{}, fmt.Errorf("marshal keys: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return config.VAPIDKeys{}, fmt.Errorf("write %s: %w", path, err)
	}
	return keys, nil
}
