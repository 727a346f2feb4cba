package sim

// Buffers accumulates plot results across stream messages.
type Buffers struct {
	Time         float64
	SpikeSenders []int
	SpikeTimes   []float64
	VmTimes      []float64
	Vm           []float64
	Messages     int
}

// Append adds a message's plot results. A nil or empty payload only counts
// the message; mismatched array lengths are truncated to the shorter one.
func (b *Buffers) Append(p *PlotResults) {
	b.Messages++
	if p == nil {
		return
	}
	if p.Time > b.Time {
		b.Time = p.Time
	}
	n := min(len(p.SpikeDet.Senders), len(p.SpikeDet.Times))
	b.SpikeSenders = append(b.SpikeSenders, p.SpikeDet.Senders[:n]...)
	b.SpikeTimes = append(b.SpikeTimes, p.SpikeDet.Times[:n]...)

	n = min(len(p.RecDev.Times), len(p.RecDev.Vm))
	b.VmTimes = append(b.VmTimes, p.RecDev.Times[:n]...)
	b.Vm = append(b.Vm, p.RecDev.Vm[:n]...)
}

// SpikeCount returns the number of recorded spikes.
func (b *Buffers) SpikeCount() int {
	return len(b.SpikeTimes)
}

// Reset clears everything.
func (b *Buffers) Reset() {
	*b = Buffers{}
}
