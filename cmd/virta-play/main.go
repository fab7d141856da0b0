package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/vsariola/virta"
	"github.com/vsariola/virta/engine"
	"github.com/vsariola/virta/midi"
	"github.com/vsariola/virta/oto"
	"github.com/vsariola/virta/player"
	"github.com/vsariola/virta/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original patch file is.")
	live := flag.Bool("p", false, "Play the patch live, driven by a MIDI input (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Render a test note and output it as a .raw file (stereo float32 by default).")
	wavOut := flag.Bool("w", false, "Render a test note and output it as a .wav file (stereo float32 by default).")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	length := flag.Float64("l", 2.0, "Length of the rendered test note, in seconds.")
	note := flag.Int("n", 60, "MIDI note number of the rendered test note.")
	midiPrefix := flag.String("m", "", "Name prefix of the MIDI input to open. Empty opens the first input available.")
	volume := flag.Int("v", 255, "Master volume, 0-255.")
	versionFlag := flag.Bool("version", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*live = true
	}

	patch := virta.DefaultPatch()
	patchFile := ""
	if flag.NArg() > 0 {
		patchFile = flag.Arg(0)
		inputBytes, err := os.ReadFile(patchFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read file %v: %v\n", patchFile, err)
			os.Exit(1)
		}
		patch, err = virta.ParsePatch(inputBytes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not parse patch %v: %v\n", patchFile, err)
			os.Exit(1)
		}
	}

	e := engine.NewEngine()
	e.SetPatch(patch)

	retval := 0
	if *rawOut || *wavOut {
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			name := "patch"
			dir := *directory
			if patchFile != "" {
				var d string
				d, name = filepath.Split(patchFile)
				name = strings.TrimSuffix(name, filepath.Ext(name))
				if dir == "" {
					dir = d
				}
			}
			if dir != "" {
				if err := os.MkdirAll(dir, os.ModePerm); err != nil {
					return fmt.Errorf("could not create output directory %v: %v", dir, err)
				}
			}
			f := filepath.Join(dir, name+extension)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}

		buffer := renderTestNote(e, uint8(*note), *length, uint8(*volume))
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not generate .raw file: %v\n", err)
				os.Exit(1)
			}
			if err := output(".raw", raw); err != nil {
				fmt.Fprintf(os.Stderr, "error outputting .raw file: %v\n", err)
				retval = 1
			}
		}
		if *wavOut {
			wav, err := buffer.Wav(*pcm)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not generate .wav file: %v\n", err)
				os.Exit(1)
			}
			if err := output(".wav", wav); err != nil {
				fmt.Fprintf(os.Stderr, "error outputting .wav file: %v\n", err)
				retval = 1
			}
		}
	}

	if *live {
		if err := playLive(e, *midiPrefix, uint8(*volume)); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// renderTestNote renders the note held for half the length, then released.
func renderTestNote(e *engine.Engine, note uint8, seconds float64, volume uint8) virta.AudioBuffer {
	numSamples := int(seconds * engine.SampleRate)
	e.NoteOn(0, note, 100)
	buffer := player.Render(e, numSamples/2, volume)
	e.NoteOff(0, note, 0)
	return append(buffer, player.Render(e, numSamples-len(buffer), volume)...)
}

func playLive(e *engine.Engine, midiPrefix string, volume uint8) error {
	audioContext, err := oto.NewContext()
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	defer audioContext.Close()

	p := player.NewPlayer(e)
	p.MasterVolume = volume

	midiContext := midi.NewContext(p)
	defer midiContext.Destroy()
	if err := midiContext.TryToOpenBy(midiPrefix, midiPrefix == ""); err != nil {
		return fmt.Errorf("could not open a MIDI input: %v", err)
	}

	playback := audioContext.Play(p.Source())
	defer playback.Close()

	quit := make(chan struct{})
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		close(quit)
	}()
	fmt.Fprintf(os.Stderr, "playing %q; ctrl-c to quit\n", e.Patch().Name.String())
	p.Run(quit)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Virta command line utility for playing .yml/.json patch files.\nUsage: %s [flags] [patchfile]\n", os.Args[0])
	flag.PrintDefaults()
}
