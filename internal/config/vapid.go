package config

import "os"

const (
	vapidPublicKeyEnv  = "VAPID_PUBLIC_KEY"
	vapidPrivateKeyEnv = "VAPID_PRIVATE_KEY"
	vapidSubscriberEnv = "VAPID_SUBSCRIBER"
)

// VAPIDConfig holds the key pair and contact address used to sign Web Push
// requests.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
}

func LoadVAPIDConfig() *VAPIDConfig {
	return &VAPIDConfig{
		PublicKey:  os.Getenv(vapidPublicKeyEnv),
		PrivateKey: os.Getenv(vapidPrivateKeyEnv),
		Subscriber: os.Getenv(vapidSubscriberEnv),
	}
}

func (c *VAPIDConfig) Validate() error {
	if c == nil || c.PublicKey == "" || c.PrivateKey == "" || c.Subscriber == "" {
		return ErrVAPIDKeysMissing
	}
	return nil
}
