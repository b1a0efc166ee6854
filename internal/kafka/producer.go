package kafka

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/route-beacon/mrt-ingester/internal/ingest"
	"github.com/route-beacon/mrt-ingester/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"go.uber.org/zap"
)

// Producer publishes RIB entries as JSON, keyed by entry id so that
// duplicates of one record land on the same partition.
type Producer struct {
	client         *kgo.Client
	topic          string
	produceTimeout time.Duration
	logger         *zap.Logger
}

func NewProducer(brokers []string, clientID, topic string, produceTimeout time.Duration, tlsCfg *tls.Config, mech sasl.Mechanism, logger *zap.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.ZstdCompression(), kgo.NoCompression()),
	}
	if tlsCfg != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}
	if mech != nil {
		opts = append(opts, kgo.SASL(mech))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	return &Producer{
		client:         client,
		topic:          topic,
		produceTimeout: produceTimeout,
		logger:         logger,
	}, nil
}

func (p *Producer) Name() string { return "kafka" }

// FlushBatch produces the batch and waits for every record to be acked.
func (p *Producer) FlushBatch(ctx context.Context, entries []*ingest.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		value, err := encodeEntry(e)
		if err != nil {
			return 0, fmt.Errorf("encoding entry %s: %w", e.Prefix, err)
		}
		records = append(records, &kgo.Record{Key: e.EntryID, Value: value})
	}

	if p.produceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.produceTimeout)
		defer cancel()
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("producing to %s: %w", p.topic, err)
	}

	metrics.KafkaRecordsProducedTotal.WithLabelValues(p.topic).Add(float64(len(records)))
	return int64(len(records)), nil
}

// Ping checks that at least one broker is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
	p.logger.Info("kafka producer closed")
}

// entryMessage is the JSON value of a produced record.
type entryMessage struct {
	EntryID          string            `json:"entry_id"`
	Source           string            `json:"source"`
	RecordTime       time.Time         `json:"record_time"`
	Kind             string            `json:"kind"`
	AFI              int               `json:"afi"`
	Prefix           string            `json:"prefix"`
	ViewNumber       uint16            `json:"view_number"`
	SequenceNumber   uint16            `json:"sequence_number"`
	OriginatedAt     time.Time         `json:"originated_at"`
	PeerIP           string            `json:"peer_ip"`
	PeerAS           uint32            `json:"peer_as"`
	Origin           string            `json:"origin,omitempty"`
	ASPath           string            `json:"as_path,omitempty"`
	Nexthop          string            `json:"nexthop,omitempty"`
	MED              *uint32           `json:"med,omitempty"`
	LocalPref        *uint32           `json:"local_pref,omitempty"`
	AtomicAggregate  bool              `json:"atomic_aggregate,omitempty"`
	Aggregator       string            `json:"aggregator,omitempty"`
	CommunitiesStd   []string          `json:"communities_std,omitempty"`
	CommunitiesExt   []string          `json:"communities_ext,omitempty"`
	CommunitiesLarge []string          `json:"communities_large,omitempty"`
	Attrs            map[string]string `json:"attrs,omitempty"`
	RawAttributes    []byte            `json:"raw_attributes,omitempty"`
}

func encodeEntry(e *ingest.Entry) ([]byte, error) {
	msg := entryMessage{
		EntryID:        hex.EncodeToString(e.EntryID),
		Source:         e.Source,
		RecordTime:     e.RecordTime,
		Kind:           e.Kind,
		AFI:            e.AFI,
		Prefix:         e.Prefix,
		ViewNumber:     e.ViewNumber,
		SequenceNumber: e.SequenceNumber,
		OriginatedAt:   e.OriginatedAt,
		PeerIP:         e.PeerIP,
		PeerAS:         e.PeerAS,
	}
	if a := e.Attrs; a != nil {
		msg.Origin = a.Origin
		msg.ASPath = a.ASPath
		msg.Nexthop = a.Nexthop
		msg.MED = a.MED
		msg.LocalPref = a.LocalPref
		msg.AtomicAggregate = a.AtomicAggr
		msg.Aggregator = a.Aggregator
		msg.CommunitiesStd = a.CommStd
		msg.CommunitiesExt = a.CommExt
		msg.CommunitiesLarge = a.CommLarge
		msg.Attrs = a.Attrs
	} else {
		msg.RawAttributes = e.RawAttributes
	}
	return json.Marshal(msg)
}
