package main

import (
	"context"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/methodgraph/methodgraph/internal/profile"
)

// CallTreesKafkaMessage carries one run's aggregated functions, keyed by
// calltree name so the consumer can merge runs by source definition.
type CallTreesKafkaMessage struct {
	Environment string                     `json:"environment,omitempty"`
	ID          string                     `json:"profile_id"`
	Program     string                     `json:"program,omitempty"`
	Runtime     string                     `json:"runtime,omitempty"`
	Timestamp   int64                      `json:"timestamp"`
	Functions   []profile.CalltreeFunction `json:"functions"`
}

func buildCallTreesKafkaMessage(environment string, p *profile.Profile) CallTreesKafkaMessage {
	m := p.Metadata()
	return CallTreesKafkaMessage{
		Environment: environment,
		ID:          p.ID(),
		Program:     m.Program,
		Runtime:     m.Runtime,
		Timestamp:   m.Timestamp.Unix(),
		Functions:   p.CalltreeFunctions(),
	}
}

func (e *environment) publishCallTrees(ctx context.Context, p *profile.Profile) error {
	b, err := gojson.Marshal(buildCallTreesKafkaMessage(e.config.Environment, p))
	if err != nil {
		return err
	}
	return e.callTreesWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.ID()),
		Value: b,
	})
}
