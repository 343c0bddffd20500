package services

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"

	"libflow/config"
	"libflow/models"
)

// SeatPublisher pushes display snapshots to a PubNub channel.
type SeatPublisher struct {
	pubnub  *pubnub.PubNub
	channel string
}

// NewPubNub builds a PubNub client from cfg.
func NewPubNub(cfg *config.Config) *pubnub.PubNub {
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	return pubnub.NewPubNub(pnConfig)
}

func NewSeatPublisher(pn *pubnub.PubNub, channel string) *SeatPublisher {
	return &SeatPublisher{pubnub: pn, channel: channel}
}

// SnapshotMessage is the payload published for every display update. Seats
// are left out to stay under PubNub's 32 KB message limit; per-zone free
// counts travel in stats.
func SnapshotMessage(snap models.Snapshot) map[string]any {
	return map[string]any{
		"type":       "seat_snapshot",
		"version":    snap.Version,
		"stats":      snap.Stats,
		"updated_at": snap.UpdatedAt.UTC().Unix(),
	}
}

func (p *SeatPublisher) Publish(ctx context.Context, snap models.Snapshot) error {
	_, st, err := p.pubnub.PublishWithContext(ctx).
		Channel(p.channel).
		Message(SnapshotMessage(snap)).
		Execute()
	if err != nil {
		return fmt.Errorf("publish to %s: %w (status %d)", p.channel, err, st.StatusCode)
	}
	return nil
}
