package webpush

import (
	"context"
	"encoding/json"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
)

// Payload is the JSON body handed to the service worker on the client.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers a payload to a single push channel.
type Sender interface {
	Send(ctx context.Context, sub domain.PushSubscription, payload Payload) error
}

// VAPIDSender sends Web Push messages signed with the configured VAPID keys.
type VAPIDSender struct {
	publicKey  string
	privateKey string
	subscriber string
}

func NewVAPIDSender(publicKey, privateKey, subscriber string) *VAPIDSender {
	return &VAPIDSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

func (s *VAPIDSender) Send(ctx context.Context, sub domain.PushSubscription, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
