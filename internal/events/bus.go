// Package events broadcasts pool operation events over a libp2p gossipsub
// topic so indexers and note-scanning clients can reconstruct their view of
// a pool without polling its storage backend directly.
package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"

	"github.com/shieldpool/core/pkg/types"
)

// topicPrefix namespaces event topics by protocol version; a pool id is
// appended to form the concrete topic string.
const topicPrefix = "shieldpool/events/v1/"

// Bus publishes pool events over gossipsub and lets callers subscribe to a
// single pool's event stream.
type Bus struct {
	mu     sync.Mutex
	host   host.Host
	pubsub *pubsub.PubSub
	topics map[types.Hash]*pubsub.Topic
}

// Config configures the underlying libp2p host.
type Config struct {
	ListenAddrs []string
	PrivateKey  crypto.PrivKey
}

// DefaultConfig returns a Config listening on an ephemeral TCP port.
func DefaultConfig() *Config {
	return &Config{ListenAddrs: []string{"/ip4/0.0.0.0/tcp/0"}}
}

// NewBus starts a libp2p host with gossipsub and returns a ready Bus.
func NewBus(ctx context.Context, cfg *Config) (*Bus, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Ed25519, -1, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("events: generate host key: %w", err)
		}
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(cfg.ListenAddrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("events: create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("events: create gossipsub: %w", err)
	}

	return &Bus{
		host:   h,
		pubsub: ps,
		topics: make(map[types.Hash]*pubsub.Topic),
	}, nil
}

// Close shuts down the underlying libp2p host.
func (b *Bus) Close() error {
	return b.host.Close()
}

func (b *Bus) topicFor(poolID types.Hash) (*pubsub.Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[poolID]; ok {
		return t, nil
	}

	t, err := b.pubsub.Join(topicPrefix + poolID.String())
	if err != nil {
		return nil, fmt.Errorf("events: join topic: %w", err)
	}
	b.topics[poolID] = t
	return t, nil
}

// Publish broadcasts an already-committed event. The caller must only
// invoke this after every state mutation for the operation has succeeded
// (§6: "Events MUST be emitted only after all state mutations succeed").
func (b *Bus) Publish(ctx context.Context, ev *types.Event) error {
	topic, err := b.topicFor(ev.PoolID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode event: %w", err)
	}

	return topic.Publish(ctx, payload)
}

// Subscribe returns a subscription to a pool's event topic. Callers read
// events with (*pubsub.Subscription).Next and unmarshal with DecodeEvent.
func (b *Bus) Subscribe(poolID types.Hash) (*pubsub.Subscription, error) {
	topic, err := b.topicFor(poolID)
	if err != nil {
		return nil, err
	}
	return topic.Subscribe()
}

// DecodeEvent unmarshals a gossipsub message payload published by Publish.
func DecodeEvent(data []byte) (*types.Event, error) {
	var ev types.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("events: decode event: %w", err)
	}
	return &ev, nil
}
