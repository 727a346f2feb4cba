package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"nest-selector/internal/sim"
)

// ConnectService sends the current projections to the service. The request
// runs in the background; the outcome arrives as EventServiceResponse or
// EventServiceError. Only local failures are returned.
func (s *Session) ConnectService() error {
	p, err := s.Payload(false)
	if err != nil {
		return err
	}
	go func() {
		out, err := s.client.Connect(context.Background(), p)
		s.dispatch(func() { s.serviceDone("connect", out, err) })
	}()
	return nil
}

// Simulate runs a simulation of the configured duration in the background.
func (s *Session) Simulate() error {
	p, err := s.Payload(true)
	if err != nil {
		return err
	}
	go func() {
		out, err := s.client.Simulate(context.Background(), p)
		s.dispatch(func() { s.serviceDone("simulate", out, err) })
	}()
	return nil
}

// StreamSimulate starts a streaming simulation. Messages are applied through
// ApplyStream as they arrive; EventStreamEnded follows the last one. A stream
// already running is superseded: its remaining messages are dropped and it
// ends without an event.
func (s *Session) StreamSimulate() error {
	p, err := s.Payload(true)
	if err != nil {
		return err
	}
	s.buffers.Reset()
	s.stream++
	id := s.stream
	run := s.client.OpenStream(context.Background(), p, func(msg sim.StreamMessage) {
		s.dispatch(func() {
			if id == s.stream {
				s.ApplyStream(msg)
			}
		})
	})
	go func() {
		err := run()
		s.dispatch(func() { s.streamDone(id, err) })
	}()
	return nil
}

// AbortSimulation drops the local stream and asks the service to stop. The
// outcome arrives as an "abort" service result; the dropped stream emits
// nothing further.
func (s *Session) AbortSimulation() {
	s.stream++
	s.client.CancelStream()
	go func() {
		err := s.client.Abort(context.Background())
		s.dispatch(func() { s.serviceDone("abort", nil, err) })
	}()
}

func (s *Session) serviceDone(op string, out json.RawMessage, err error) {
	if err != nil {
		log.Printf("app: %s failed: %v", op, err)
		s.Emit(EventServiceError, ServiceResult{Op: op, Err: err})
		return
	}
	s.Emit(EventServiceResponse, ServiceResult{Op: op, Response: out})
}

func (s *Session) streamDone(id int, err error) {
	if id != s.stream || errors.Is(err, sim.ErrSuperseded) {
		log.Printf("app: stream %d superseded", id)
		return
	}
	if err != nil {
		log.Printf("app: stream %d failed: %v", id, err)
	}
	s.Emit(EventStreamEnded, ServiceResult{Op: "stream", Stream: id, Err: err})
}

// ApplyStream folds one stream message into the plot buffers and recolors
// every sampled neuron by its membrane potential. Unknown neuron ids and
// empty payloads are ignored.
func (s *Session) ApplyStream(msg sim.StreamMessage) {
	s.buffers.Append(msg.PlotResults)
	for _, smp := range msg.Samples() {
		ly, i, ok := s.layers.Neuron(smp.Neuron)
		if !ok {
			continue
		}
		ly.SetPotential(i, smp.Value, s.cfg.VmMin, s.cfg.VmMax)
	}
	s.Emit(EventStreamMessage, msg)
}

// Buffers returns the plot data collected from the current stream.
func (s *Session) Buffers() *sim.Buffers {
	return &s.buffers
}
