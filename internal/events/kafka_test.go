package events

import "testing"

func TestKafkaPublisherWritesSingleMessages(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "ride-events")
	defer p.Close()

	if p.writer.BatchSize != 1 {
		t.Errorf("BatchSize = %d, want 1", p.writer.BatchSize)
	}
	if p.writer.BatchTimeout != kafkaBatchTimeout || kafkaBatchTimeout > kafkaWriteTimeout/100 {
		t.Errorf("BatchTimeout = %v, want %v", p.writer.BatchTimeout, kafkaBatchTimeout)
	}
}
