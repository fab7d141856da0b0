package virta_test

import (
	"encoding/json"
	"testing"

	"github.com/vsariola/virta"
)

func TestParameterRoundTripCoversTheWholeIndexSpace(t *testing.T) {
	var p virta.Patch
	for i := 0; i < virta.NumParams; i++ {
		v := uint8((i*7 + 3) % 256)
		p.SetParameter(i, v)
		if got := p.Parameter(i); got != v {
			t.Errorf("parameter %d: got %d, want %d", i, got, v)
		}
	}
	// Writing one parameter must not disturb its neighbours.
	for i := 0; i < virta.NumParams; i++ {
		if got, want := p.Parameter(i), uint8((i*7+3)%256); got != want {
			t.Errorf("parameter %d after full sweep: got %d, want %d", i, got, want)
		}
	}
}

func TestParameterIndexLayout(t *testing.T) {
	cases := []struct {
		name  string
		index int
		want  int
	}{
		{"modulation base", virta.ParamModulationBase, 28},
		{"arp tempo", virta.ParamArpTempo, 70},
		{"sequence base", virta.ParamSequenceBase, 74},
		{"kbd octave", virta.ParamKbdOctave, 82},
		{"name base", virta.ParamNameBase, 86},
		{"arp pattern size", virta.ParamArpPatternSize, 94},
		{"num params", virta.NumParams, 95},
	}
	for _, c := range cases {
		if c.index != c.want {
			t.Errorf("%s: got %d, want %d", c.name, c.index, c.want)
		}
	}
}

func TestModulationParameterIdsAliasTheEntries(t *testing.T) {
	var p virta.Patch
	p.SetParameter(virta.ParamModulationSource(5), uint8(virta.SrcWheel))
	p.SetParameter(virta.ParamModulationSource(5)+1, uint8(virta.DstPWM2))
	p.SetParameter(virta.ParamModulationSource(5)+2, uint8(0xff)) // -1
	m := p.Modulation[5]
	if m.Source != virta.SrcWheel || m.Destination != virta.DstPWM2 || m.Amount != -1 {
		t.Errorf("entry 5 after parameter writes: got %+v", m)
	}
}

func TestOutOfRangeParameterIndicesAreIgnored(t *testing.T) {
	var p virta.Patch
	p.SetParameter(-1, 200)
	p.SetParameter(virta.NumParams, 200)
	if p.Parameter(-1) != 0 || p.Parameter(virta.NumParams) != 0 {
		t.Error("out-of-range reads must return 0")
	}
}

func TestDefaultPatchIsValid(t *testing.T) {
	p := virta.DefaultPatch()
	if err := p.Validate(); err != nil {
		t.Fatalf("default patch invalid: %v", err)
	}
	if p.Name.String() != "new" {
		t.Errorf("name: got %q, want %q", p.Name.String(), "new")
	}
	if p.Modulation[6] != (virta.ModulationEntry{
		Source: virta.SrcEnvelope2, Destination: virta.DstVCA, Amount: 63,
	}) {
		t.Errorf("VCA routing: got %+v", p.Modulation[6])
	}
}

func TestSequenceStepUnpacksNibbles(t *testing.T) {
	p := virta.DefaultPatch() // sequence bytes 00 00 ff ff cc cc 44 44
	cases := []struct {
		step uint8
		want uint8
	}{
		{0, 0x00}, {4, 0xf0}, {5, 0xf0}, {8, 0xc0}, {9, 0xc0}, {12, 0x40}, {15, 0x40},
	}
	for _, c := range cases {
		if got := p.SequenceStep(c.step); got != c.want {
			t.Errorf("step %d: got %#x, want %#x", c.step, got, c.want)
		}
	}
}

func TestPatchYAMLRoundTrip(t *testing.T) {
	p := virta.DefaultPatch()
	data, err := virta.MarshalPatch(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	q, err := virta.ParsePatch(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if q != p {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", q, p)
	}
}

func TestPatchJSONIsAccepted(t *testing.T) {
	p := virta.DefaultPatch()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	q, err := virta.ParsePatch(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if q != p {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", q, p)
	}
}

func TestParsePatchRejectsBrokenIds(t *testing.T) {
	p := virta.DefaultPatch()
	p.OscShape[0] = 200
	data, err := virta.MarshalPatch(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if _, err := virta.ParsePatch(data); err == nil {
		t.Error("a shape id past the table end must fail validation")
	}
}

func TestNamePatchPadsAndTruncates(t *testing.T) {
	if got := virta.NamePatch("hi").String(); got != "hi" {
		t.Errorf("short name: got %q", got)
	}
	if got := virta.NamePatch("a very long name").String(); got != "a very l" {
		t.Errorf("long name: got %q", got)
	}
}
