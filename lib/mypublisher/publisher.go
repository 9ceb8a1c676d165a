package mypublisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/storefront/lib/myevents"
	"github.com/MarcGrol/storefront/lib/mypubsub"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/lib/myuuid"
)

type directPublisher struct {
	pubsub    mypubsub.PubSub
	enveloper enveloper
}

// New returns a publisher that wraps each event in an envelope and hands it to pubsub right away.
func New(pubsub mypubsub.PubSub, nower mytime.Nower, uuider myuuid.UUIDer) Publisher {
	return &directPublisher{
		pubsub:    pubsub,
		enveloper: newEnveloper(nower, uuider),
	}
}

func (p *directPublisher) CreateTopic(c context.Context, topic string) error {
	return p.pubsub.CreateTopic(c, topic)
}

func (p *directPublisher) Publish(c context.Context, topic string, event myevents.Event) error {
	envelope, err := p.enveloper.do(topic, event)
	if err != nil {
		return err
	}

	envelopeBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("error marshalling envelope %s: %w", envelope, err)
	}

	err = p.pubsub.Publish(c, topic, string(envelopeBytes))
	if err != nil {
		return fmt.Errorf("error publishing envelope %s: %w", envelope, err)
	}

	return nil
}
