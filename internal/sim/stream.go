package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// SpikeDet holds spike detector output.
type SpikeDet struct {
	Senders []int     `json:"senders"`
	Times   []float64 `json:"times"`
}

// RecDev holds membrane potential samples.
type RecDev struct {
	Times []float64 `json:"times"`
	Vm    []float64 `json:"V_m"`
}

// PlotResults is the plot-oriented part of a stream message.
type PlotResults struct {
	Time     float64  `json:"time"`
	SpikeDet SpikeDet `json:"spike_det"`
	RecDev   RecDev   `json:"rec_dev"`
}

// StreamMessage is one value of a streaming simulation response. Either part
// may be missing.
type StreamMessage struct {
	PlotResults   *PlotResults                    `json:"plot_results,omitempty"`
	StreamResults map[string]map[string][]float64 `json:"stream_results,omitempty"`
}

// Sample is one device reading for one neuron.
type Sample struct {
	Device string
	Neuron int
	Time   float64
	Value  float64
}

// Samples flattens StreamResults, ordered by device and neuron id. Entries
// with a non-numeric neuron id or fewer than two values are skipped.
func (m StreamMessage) Samples() []Sample {
	var out []Sample
	for dev, neurons := range m.StreamResults {
		for key, v := range neurons {
			id, err := strconv.Atoi(key)
			if err != nil || len(v) < 2 {
				continue
			}
			out = append(out, Sample{Device: dev, Neuron: id, Time: v[0], Value: v[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		return out[i].Neuron < out[j].Neuron
	})
	return out
}

// DecodeStream reads a sequence of JSON stream messages from r and calls fn
// for each one. It returns nil at a clean end of input.
func DecodeStream(r io.Reader, fn func(StreamMessage) error) error {
	dec := json.NewDecoder(r)
	for {
		var msg StreamMessage
		if err := dec.Decode(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("sim: decode stream: %w", err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}
