package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hrtriage/internal/mqtt"
)

// MonitorOptions configures a live watch session.
type MonitorOptions struct {
	Consumer  mqtt.Consumer
	Publisher mqtt.Publisher
	Status    mqtt.ConnectionStatus // optional, reported on the status page
	Detector  *Detector
	Journal   *Journal
	Tracker   *Tracker // optional

	SampleTopic  string        // default mqtt.DefaultSampleTopic
	EventTopic   string        // default mqtt.DefaultEventTopic
	TickInterval time.Duration // default 1s
	Now          func() time.Time
}

// Monitor wires a broker subscription through the live detector and
// publishes the resulting events with store-and-forward delivery.
type Monitor struct {
	consumer  mqtt.Consumer
	publisher mqtt.Publisher
	status    mqtt.ConnectionStatus
	detector  *Detector
	journal   *Journal
	tracker   *Tracker

	sampleTopic string
	eventTopic  string
	tick        time.Duration
	now         func() time.Time

	messages chan mqtt.Message
}

// NewMonitor creates a monitor from the given options.
func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.SampleTopic == "" {
		opts.SampleTopic = mqtt.DefaultSampleTopic
	}
	if opts.EventTopic == "" {
		opts.EventTopic = mqtt.DefaultEventTopic
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Monitor{
		consumer:    opts.Consumer,
		publisher:   opts.Publisher,
		status:      opts.Status,
		detector:    opts.Detector,
		journal:     opts.Journal,
		tracker:     opts.Tracker,
		sampleTopic: opts.SampleTopic,
		eventTopic:  opts.EventTopic,
		tick:        opts.TickInterval,
		now:         opts.Now,
		messages:    make(chan mqtt.Message, 256),
	}
}

// Run subscribes to the sample topic and processes the feed until ctx is
// cancelled. Broker callbacks enqueue into a buffered channel so the paho
// receive goroutine never blocks on detector work.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.consumer.Subscribe(m.sampleTopic, m.enqueue); err != nil {
		return fmt.Errorf("subscribe to %s: %w", m.sampleTopic, err)
	}

	log.Info().
		Str("sample_topic", m.sampleTopic).
		Str("event_topic", m.eventTopic).
		Int("journaled", m.journal.Len()).
		Msg("Watch started")

	// Resend anything a previous run left queued.
	if m.journal.Len() > 0 {
		m.flushJournal()
	}
	m.updateStatus()

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-m.messages:
			m.handleSample(msg)
		case <-ticker.C:
			m.handleTick()
		}
	}
}

func (m *Monitor) enqueue(msg mqtt.Message) {
	select {
	case m.messages <- msg:
	default:
		log.Warn().Str("topic", msg.Topic).Msg("Sample channel full, dropping message")
	}
}

func (m *Monitor) handleSample(msg mqtt.Message) {
	s, err := mqtt.ParseSample(msg.Payload)
	if err != nil {
		recordInvalid()
		// The error names the offending field, never the reading itself.
		log.Warn().Err(err).Msg("Dropping undecodable sample payload")
		m.updateStatus()
		return
	}
	recordMessage()

	events := m.detector.Process(s, m.now())
	recordLastSample(m.detector.LastSample())
	m.emit(events)
	m.updateStatus()
}

func (m *Monitor) handleTick() {
	events := m.detector.Tick(m.now())
	m.emit(events)

	// Retry anything still queued, e.g. after a broker reconnect.
	if len(events) == 0 && m.journal.Len() > 0 {
		m.flushJournal()
	}
	m.updateStatus()
}

// emit journals and publishes detector events in order.
func (m *Monitor) emit(events []Event) {
	for _, e := range events {
		m.logEvent(e)
		recordEvent(e)

		payload, err := FormatEvent(e)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode event payload")
			continue
		}
		if err := m.journal.Append(payload); err != nil {
			log.Error().Err(err).Msg("Failed to journal event, attempting direct publish")
			if perr := m.publisher.Publish(m.eventTopic, payload); perr != nil {
				log.Error().Err(perr).Msg("Direct publish failed, event lost")
			}
		}
	}
	if len(events) > 0 {
		m.flushJournal()
	}
}

func (m *Monitor) flushJournal() {
	sent, err := m.journal.Flush(func(payload []byte) error {
		return m.publisher.Publish(m.eventTopic, payload)
	})
	if err != nil {
		log.Warn().Err(err).Int("queued", m.journal.Len()).Msg("Publish failed, events stay journaled")
		return
	}
	if sent > 0 {
		log.Debug().Int("sent", sent).Msg("Flushed journaled events")
	}
}

// logEvent reports the event with timestamps and counts only.
func (m *Monitor) logEvent(e Event) {
	switch e.Type {
	case EventIncidentOpen:
		log.Info().
			Int("incident", e.ID).
			Time("start", e.Start).
			Msg("Incident opened")
	case EventIncidentClose:
		log.Info().
			Int("incident", e.ID).
			Time("start", e.Start).
			Time("end", e.End).
			Float64("duration_seconds", e.DurationSeconds).
			Int("samples", e.SampleCount).
			Msg("Incident closed")
	}
}

func (m *Monitor) updateStatus() {
	if m.tracker == nil {
		return
	}
	start, open := m.detector.OpenIncident()
	m.tracker.Update(m.detector.Counts(), open, start, m.detector.LastSample(), m.journal.Len())
	if m.status != nil {
		m.tracker.SetConnected(m.status.IsConnected())
	}
}
