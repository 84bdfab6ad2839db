package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"calm_games/internal/domain"
	"calm_games/internal/logger"
	"calm_games/internal/metrics"

	"github.com/IBM/sarama"
)

const TopicCompletions = "calm-completions"

// EventType of an analytics event
type EventType string

const (
	EventCompletionSettled EventType = "completion_settled"
)

// CompletionEvent is one settled play-through on the analytics topic
type CompletionEvent struct {
	Type            EventType       `json:"type"`
	UserID          int64           `json:"userId"`
	GameID          string          `json:"gameId"`
	GameType        domain.GameType `json:"gameType"`
	GameIndex       int             `json:"gameIndex"`
	PlaythroughID   string          `json:"playthroughId"`
	NormalizedScore int             `json:"normalizedScore"`
	TotalLevels     int             `json:"totalLevels"`
	AllCorrect      bool            `json:"allCorrect"`
	IsReplay        bool            `json:"isReplay"`
	Reward          int64           `json:"reward"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Producer emits completion analytics to Kafka. With no brokers it stays
// disabled and every emit is a no-op.
type Producer struct {
	producer sarama.SyncProducer
	enabled  bool
}

// NewProducer connects to brokers; failure disables analytics instead of
// failing startup.
func NewProducer(brokers []string) *Producer {
	if len(brokers) == 0 {
		return &Producer{}
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		logger.Warn("kafka producer not available, analytics disabled", "error", err)
		return &Producer{}
	}

	logger.Info("kafka producer connected", "brokers", brokers)
	return NewProducerWith(producer)
}

// NewProducerWith wraps an existing sync producer
func NewProducerWith(p sarama.SyncProducer) *Producer {
	return &Producer{producer: p, enabled: true}
}

// CompletionSettled publishes rec keyed by user so one user's events stay ordered
func (p *Producer) CompletionSettled(ctx context.Context, rec domain.CompletionRecord) {
	if !p.enabled {
		return
	}

	ts := rec.SubmittedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	event := CompletionEvent{
		Type:            EventCompletionSettled,
		UserID:          rec.UserID,
		GameID:          rec.GameID,
		GameType:        rec.GameType,
		GameIndex:       rec.GameIndex,
		PlaythroughID:   rec.PlaythroughID,
		NormalizedScore: rec.NormalizedScore,
		TotalLevels:     rec.TotalLevels,
		AllCorrect:      rec.AllCorrect,
		IsReplay:        rec.IsReplay,
		Reward:          rec.RewardGranted,
		Timestamp:       ts,
	}
	p.send(ctx, strconv.FormatInt(rec.UserID, 10), event)
}

func (p *Producer) send(ctx context.Context, key string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("marshal analytics event", "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: TopicCompletions,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		metrics.EventsPublished.WithLabelValues("kafka", "error").Inc()
		logger.WithContext(ctx).Warn("kafka send failed", "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("kafka", "ok").Inc()
}

func (p *Producer) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func (p *Producer) IsEnabled() bool {
	return p.enabled
}
