package virta

// Modulation sources and destinations are nibble-sized ids: the packed patch
// image (see sysex.go) stores a (source, destination) pair in a single byte,
// so both id spaces must stay below 16.

// ModSource identifies a modulation source. Sources below NumGlobalModSources
// are recomputed by the engine every control tick; the rest are voice-local
// and are looked up in the voice's source array at id - NumGlobalModSources.
type ModSource byte

const (
	SrcLFO1 ModSource = iota
	SrcLFO2
	SrcSequence      // value of the current sequencer step
	SrcSequencerGate // 255 while the arpeggiator holds a note, 0 otherwise
	SrcWheel
	SrcPitchBend
	SrcCV1
	SrcCV2
	SrcAssignable1
	SrcAssignable2
	SrcRandom

	SrcEnvelope1
	SrcEnvelope2
	SrcVelocity
	SrcNote
	SrcGate
)

const (
	NumModSources       = int(SrcGate) + 1
	NumGlobalModSources = int(SrcEnvelope1)
	NumVoiceModSources  = NumModSources - NumGlobalModSources
)

// Relative reports whether the source is bipolar around mid-scale (128).
// Routings from a relative source subtract a centering bias of amount << 7 so
// that a mid-scale source value contributes zero net modulation.
func (s ModSource) Relative() bool {
	return s <= SrcLFO2 || s == SrcPitchBend || s == SrcNote
}

// Global reports whether the source is recomputed by the engine rather than
// per voice.
func (s ModSource) Global() bool {
	return int(s) < NumGlobalModSources
}

// ModDestination identifies a modulated synthesis parameter. All destinations
// except DstVCA are accumulated additively in a 14-bit working range and then
// scaled down to their native range; DstVCA is multiplicative in [0, 255].
type ModDestination byte

const (
	DstFilterCutoff ModDestination = iota
	DstFilterResonance
	DstPWM1
	DstPWM2
	DstVCO1
	DstVCO2
	DstVCOFine
	DstMixBalance
	DstMixNoise
	DstMixSubOsc
	DstVCA
)

const NumModDestinations = int(DstVCA) + 1

// ModulationEntry is one routing of the modulation matrix. Amount is in
// [-63, 63]; a zero amount makes the entry a no-op and it may be skipped.
type ModulationEntry struct {
	Source      ModSource      `yaml:"source"`
	Destination ModDestination `yaml:"destination"`
	Amount      int8           `yaml:"amount"`
}
