package virta

import (
	"errors"
	"fmt"
)

// The packed patch image is the external-interface form of a patch: the 28
// leading parameters as raw bytes, the modulation matrix with each (source,
// destination) pair packed in one byte, the sequence and the name. The
// arpeggiator and keyboard settings are system settings and are not part of
// the image.
const packedParams = ParamLFORate2 + 1

// PackedPatchSize is the size of the packed patch image in bytes.
const PackedPatchSize = packedParams + 2*SavedModulationEntries + NumSequenceSteps + PatchNameSize

// Pack serializes the patch into its packed image.
func (p *Patch) Pack() []byte {
	buf := make([]byte, PackedPatchSize)
	for i := 0; i < packedParams; i++ {
		buf[i] = p.Parameter(i)
	}
	for i, m := range p.Modulation {
		buf[packedParams+2*i] = byte(m.Source) | byte(m.Destination)<<4
		buf[packedParams+2*i+1] = byte(m.Amount)
	}
	seqOffset := packedParams + 2*SavedModulationEntries
	copy(buf[seqOffset:], p.Sequence[:])
	copy(buf[seqOffset+NumSequenceSteps:], p.Name[:])
	return buf
}

// checkImage is a plausibility check on a packed image, catching corrupted
// transfers that happen to pass the checksum: waveform and matrix ids must
// index their tables and the name must be 7-bit clean.
func checkImage(buf []byte) bool {
	if len(buf) < PackedPatchSize {
		return false
	}
	if buf[ParamOscShape1] >= NumWaveforms || buf[ParamOscShape2] >= NumWaveforms ||
		buf[ParamMixSubOscShape] >= NumWaveforms {
		return false
	}
	if buf[ParamLFOWave1] >= NumLFOWaveforms || buf[ParamLFOWave2] >= NumLFOWaveforms {
		return false
	}
	for i := 0; i < SavedModulationEntries; i++ {
		b := buf[packedParams+2*i]
		if int(b&0x0f) >= NumModSources || int(b>>4) >= NumModDestinations {
			return false
		}
	}
	nameOffset := packedParams + 2*SavedModulationEntries + NumSequenceSteps
	for _, c := range buf[nameOffset : nameOffset+PatchNameSize] {
		if c > 127 {
			return false
		}
	}
	return true
}

// Unpack overwrites the patch from a packed image.
func (p *Patch) Unpack(buf []byte) error {
	if len(buf) < PackedPatchSize {
		return fmt.Errorf("packed patch too short: %d bytes, need %d", len(buf), PackedPatchSize)
	}
	if !checkImage(buf) {
		return errors.New("packed patch failed the plausibility check")
	}
	for i := 0; i < packedParams; i++ {
		p.SetParameter(i, buf[i])
	}
	for i := range p.Modulation {
		p.Modulation[i].Source = ModSource(buf[packedParams+2*i] & 0x0f)
		p.Modulation[i].Destination = ModDestination(buf[packedParams+2*i] >> 4)
		p.Modulation[i].Amount = int8(buf[packedParams+2*i+1])
	}
	seqOffset := packedParams + 2*SavedModulationEntries
	copy(p.Sequence[:], buf[seqOffset:])
	copy(p.Name[:], buf[seqOffset+NumSequenceSteps:])
	return nil
}

// sysExHeader frames a patch transfer. The manufacturer id is the educational
// one; the product/command bytes identify a full patch dump.
var sysExHeader = []byte{0xf0, 0x00, 0x20, 0x77, 0x00, 0x01, 0x01, 0x00}

// EncodeSysEx serializes the patch as a checksummed bulk dump: the packed
// image in high-low nibblized form, followed by the nibblized additive
// checksum of the image, framed in a SysEx message.
func EncodeSysEx(p *Patch) []byte {
	image := p.Pack()
	out := make([]byte, 0, len(sysExHeader)+2*len(image)+3)
	out = append(out, sysExHeader...)
	var checksum uint8
	for _, b := range image {
		checksum += b
		out = append(out, b>>4, b&0x0f)
	}
	out = append(out, checksum>>4, checksum&0x0f, 0xf7)
	return out
}

// SysExState is the state of the bulk-dump receiver.
type SysExState uint8

const (
	SysExIdle SysExState = iota
	SysExReceivingHeader
	SysExReceivingData
	SysExReceivingFooter
	SysExReceptionOK
	SysExReceptionError
)

// SysExDecoder consumes a bulk dump byte by byte. Feed each received byte to
// Feed; when it returns SysExReceptionOK the decoded patch is available from
// Patch. The decoder re-arms itself on the next 0xf0.
type SysExDecoder struct {
	state    SysExState
	received int
	checksum uint8
	buffer   [PackedPatchSize + 1]byte
}

func (d *SysExDecoder) State() SysExState { return d.state }

func (d *SysExDecoder) Feed(b byte) SysExState {
	if b == 0xf0 {
		d.state = SysExReceivingHeader
		d.received = 0
		d.checksum = 0
	}
	switch d.state {
	case SysExReceivingHeader:
		if sysExHeader[d.received] == b {
			d.received++
			if d.received >= len(sysExHeader) {
				d.state = SysExReceivingData
				d.received = 0
			}
		} else {
			// Not our header; ignore everything until the next 0xf0.
			d.state = SysExReceptionError
		}
	case SysExReceivingData:
		i := d.received >> 1
		if d.received&1 == 0 {
			d.buffer[i] = b << 4
		} else {
			d.buffer[i] |= b & 0x0f
			if i < PackedPatchSize {
				d.checksum += d.buffer[i]
			}
		}
		d.received++
		if d.received >= (PackedPatchSize+1)*2 {
			d.state = SysExReceivingFooter
		}
	case SysExReceivingFooter:
		if b == 0xf7 && d.checksum == d.buffer[PackedPatchSize] && checkImage(d.buffer[:PackedPatchSize]) {
			d.state = SysExReceptionOK
		} else {
			d.state = SysExReceptionError
		}
	}
	return d.state
}

// Patch returns the received patch after a successful reception.
func (d *SysExDecoder) Patch() (Patch, error) {
	if d.state != SysExReceptionOK {
		return Patch{}, errors.New("no complete patch has been received")
	}
	var p Patch
	if err := p.Unpack(d.buffer[:PackedPatchSize]); err != nil {
		return Patch{}, err
	}
	return p, nil
}
