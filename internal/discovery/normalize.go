package discovery

import (
	"context"
	"encoding/json"

	"github.com/mtlprog/mintbridge/internal/domain"
	"github.com/mtlprog/mintbridge/internal/logger"
)

// Record is the per-account bundle of topics and payloads ready for publishing.
type Record struct {
	StateTopic            string          `json:"state_topic"`
	AttributeTopic        string          `json:"attribute_topic"`
	DiscoveryTopicBalance string          `json:"discovery_topic_balance"`
	DiscoveryTopicUpdate  string          `json:"discovery_topic_update"`
	DiscoveryTopicError   string          `json:"discovery_topic_error"`
	DiscoveryBalance      Payload         `json:"discovery_payload_balance"`
	DiscoveryUpdate       Payload         `json:"discovery_payload_update"`
	DiscoveryError        Payload         `json:"discovery_payload_error"`
	StatePayload          json.RawMessage `json:"state_payload"`
	AttributePayload      map[string]any  `json:"attribute_payload"`
}

// Message is a single topic/payload pair. Payload is encoded at send time.
type Message struct {
	Topic   string
	Payload any
	Retain  bool
}

// Messages returns the record's messages in publish order: the three
// discovery configs, then state, then attributes.
func (r Record) Messages() []Message {
	return []Message{
		{Topic: r.DiscoveryTopicBalance, Payload: r.DiscoveryBalance, Retain: true},
		{Topic: r.DiscoveryTopicUpdate, Payload: r.DiscoveryUpdate, Retain: true},
		{Topic: r.DiscoveryTopicError, Payload: r.DiscoveryError, Retain: true},
		{Topic: r.StateTopic, Payload: r.StatePayload},
		{Topic: r.AttributeTopic, Payload: r.AttributePayload},
	}
}

// Normalizer builds records for every eligible account in a snapshot.
type Normalizer struct {
	namer Namer
}

// NewNormalizer creates a Normalizer using the given topic namer.
func NewNormalizer(namer Namer) *Normalizer {
	return &Normalizer{namer: namer}
}

// Normalize returns one record per eligible account, in snapshot order.
// Accounts of other types are skipped.
func (n *Normalizer) Normalize(ctx context.Context, snap domain.Snapshot) []Record {
	log := logger.FromContext(ctx)

	records := make([]Record, 0, snap.Len())
	for _, a := range snap.Accounts {
		if !a.Type.Eligible() {
			log.Info().Str("account_id", a.ID).Str("type", string(a.Type)).Msg("skipping unsupported account type")
			continue
		}
		records = append(records, n.record(a))
	}

	log.Debug().Int("accounts", snap.Len()).Int("records", len(records)).Msg("normalized snapshot")
	return records
}

func (n *Normalizer) record(a domain.Account) Record {
	t := n.namer.Topics(a)
	return Record{
		StateTopic:            t.State,
		AttributeTopic:        t.Attributes,
		DiscoveryTopicBalance: t.DiscoveryBalance,
		DiscoveryTopicUpdate:  t.DiscoveryUpdate,
		DiscoveryTopicError:   t.DiscoveryError,
		DiscoveryBalance:      BalancePayload(a, t),
		DiscoveryUpdate:       UpdatePayload(a, t),
		DiscoveryError:        ErrorPayload(a, t),
		StatePayload:          a.Raw(),
		AttributePayload:      ExtractAttributes(a),
	}
}
