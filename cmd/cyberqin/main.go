// Package main is the entry point for the cyber-qin CLI.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/EdmondVirelle/cyber-qin/config"
	"github.com/EdmondVirelle/cyber-qin/debug"
	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/keysim"
	"github.com/EdmondVirelle/cyber-qin/live"
	"github.com/EdmondVirelle/cyber-qin/midiio"
	"github.com/EdmondVirelle/cyber-qin/pipeline"
	"github.com/EdmondVirelle/cyber-qin/player"
	"github.com/EdmondVirelle/cyber-qin/theme"
	"github.com/EdmondVirelle/cyber-qin/tui"
)

var (
	schemeID     string
	transpose    int
	strategy     string
	maxPolyphony int
	speed        float64
	countIn      int
	loop         bool
	tracks       string
	recordPort   string
	paletteFile  string
	verbose      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cyberqin",
	Short: "Play MIDI through game instrument key schemes",
	Long: `cyberqin maps MIDI input onto the constrained keyboard layouts that
games use for their in-game instruments, so a real piano (or a MIDI file)
plays them.

Examples:
  cyberqin devices
  cyberqin schemes
  cyberqin play song.mid --scheme wwm_36
  cyberqin live "Roland FP-30"
  cyberqin arrange song.mid arranged.mid --strategy flowing_fold
  cyberqin record take.mid`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			if err := debug.Enable(); err != nil {
				fmt.Fprintln(os.Stderr, "debug log:", err)
			}
		}
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List MIDI input ports",
	RunE:  runDevices,
}

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List key schemes",
	RunE:  runSchemes,
}

var playCmd = &cobra.Command{
	Use:   "play <file.mid>",
	Short: "Arrange and play a MIDI file into the focused game window",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var liveCmd = &cobra.Command{
	Use:   "live [port]",
	Short: "Translate a MIDI keyboard in real time",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLive,
}

var arrangeCmd = &cobra.Command{
	Use:   "arrange <input.mid> <output.mid>",
	Short: "Arrange a MIDI file for a scheme and write the result",
	Args:  cobra.ExactArgs(2),
	RunE:  runArrange,
}

var recordCmd = &cobra.Command{
	Use:   "record <output.mid>",
	Short: "Record live MIDI input to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemeID, "scheme", "", "Key scheme id (see 'schemes')")
	rootCmd.PersistentFlags().IntVar(&transpose, "transpose", 0, "Manual transpose in semitones")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write a debug log")
	rootCmd.PersistentFlags().StringVar(&paletteFile, "palette", "", "UI color palette (.gpl file)")

	playCmd.Flags().StringVar(&strategy, "strategy", string(pipeline.StrategyAuto), "Fold strategy: auto, global_transpose, flowing_fold, hybrid")
	playCmd.Flags().IntVar(&maxPolyphony, "max-polyphony", 0, "Limit simultaneous notes (0 = unlimited)")
	playCmd.Flags().Float64Var(&speed, "speed", 0, "Playback speed multiplier")
	playCmd.Flags().IntVar(&countIn, "count-in", -1, "Count-in beats before playback")
	playCmd.Flags().BoolVar(&loop, "loop", false, "Loop playback")
	playCmd.Flags().StringVar(&tracks, "tracks", "", "Comma-separated track numbers to keep")

	arrangeCmd.Flags().StringVar(&strategy, "strategy", string(pipeline.StrategyAuto), "Fold strategy: auto, global_transpose, flowing_fold, hybrid")
	arrangeCmd.Flags().IntVar(&maxPolyphony, "max-polyphony", 0, "Limit simultaneous notes (0 = unlimited)")
	arrangeCmd.Flags().StringVar(&tracks, "tracks", "", "Comma-separated track numbers to keep")

	recordCmd.Flags().StringVar(&recordPort, "port", "", "Input port name (default: first available)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(schemesCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(arrangeCmd)
	rootCmd.AddCommand(recordCmd)
}

// loadTheme builds the UI theme, from a .gpl file when --palette is given.
func loadTheme() (*theme.Theme, error) {
	if paletteFile == "" {
		return theme.New(theme.Default()), nil
	}
	p, err := theme.LoadGPL(paletteFile)
	if err != nil {
		return nil, fmt.Errorf("load palette: %w", err)
	}
	return theme.New(p), nil
}

// loadSetup resolves config + flags into a scheme and mapper.
func loadSetup() (*config.Config, *keymap.Scheme, *keymap.Mapper, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	id := cfg.SchemeID
	if schemeID != "" {
		id = schemeID
	}
	scheme, err := keymap.Get(id)
	if err != nil {
		return nil, nil, nil, err
	}
	mapper := keymap.NewMapper(scheme)
	if transpose != 0 {
		mapper.SetTranspose(transpose)
	} else if cfg.Transpose != 0 {
		mapper.SetTranspose(cfg.Transpose)
	}
	return cfg, scheme, mapper, nil
}

func parseTracks(s string) (map[int]bool, error) {
	if s == "" {
		return nil, nil
	}
	keep := map[int]bool{}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad track number %q", part)
		}
		keep[n] = true
	}
	return keep, nil
}

func buildOptions(cfg *config.Config, scheme *keymap.Scheme) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions(scheme.NoteMin, scheme.NoteMax)
	opts.Strategy = pipeline.Strategy(strategy)
	if maxPolyphony > 0 {
		opts.MaxPolyphony = maxPolyphony
	} else if cfg.MaxPolyphony > 0 {
		opts.MaxPolyphony = cfg.MaxPolyphony
	}
	keep, err := parseTracks(tracks)
	if err != nil {
		return opts, err
	}
	opts.Tracks = keep
	return opts, nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	ports := midiio.Ports()
	if len(ports) == 0 {
		fmt.Println("No MIDI input ports found.")
		return nil
	}
	for i, name := range ports {
		fmt.Printf("%d: %s\n", i, name)
	}
	return nil
}

func runSchemes(cmd *cobra.Command, args []string) error {
	for _, s := range keymap.List() {
		fmt.Printf("%-12s %-28s %s  %d keys  %s..%s\n",
			s.ID, s.Name, s.Game, s.KeyCount,
			keymap.NoteName(s.NoteMin), keymap.NoteName(s.NoteMax))
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, scheme, mapper, err := loadSetup()
	if err != nil {
		return err
	}

	events, info, err := midiio.ParseFile(args[0])
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg, scheme)
	if err != nil {
		return err
	}
	arranged, stats, err := pipeline.Process(events, opts)
	if err != nil {
		return err
	}
	fmt.Println(stats)

	sim := keysim.NewSimulator(keysim.NewPlatformInjector())
	p := player.New(mapper, sim)
	p.Load(arranged, info)

	if speed > 0 {
		p.SetSpeed(speed)
	} else if cfg.Speed > 0 {
		p.SetSpeed(cfg.Speed)
	}
	if countIn >= 0 {
		p.SetCountIn(countIn)
	} else {
		p.SetCountIn(cfg.CountInBeats)
	}
	p.SetLoop(loop || cfg.Loop)

	th, err := loadTheme()
	if err != nil {
		return err
	}
	p.Play()

	model := tui.NewPlayModel(p, mapper, th, filepath.Base(args[0]))
	if _, err := tea.NewProgram(model).Run(); err != nil {
		p.Stop()
		return err
	}
	p.Stop()
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, _, mapper, err := loadSetup()
	if err != nil {
		return err
	}

	port := ""
	if len(args) == 1 {
		port = args[0]
	} else {
		ports := midiio.Ports()
		for _, name := range ports {
			if cfg.ShouldAutoConnect(name) {
				port = name
				break
			}
		}
		if port == "" && len(ports) > 0 {
			port = ports[0]
		}
	}
	if port == "" {
		return fmt.Errorf("no MIDI input port available")
	}

	th, err := loadTheme()
	if err != nil {
		return err
	}

	sim := keysim.NewSimulator(keysim.NewPlatformInjector())
	adapter := live.New(mapper, sim)
	if err := adapter.Attach(port); err != nil {
		return err
	}
	defer adapter.Detach()

	model := tui.NewLiveModel(adapter, th)
	_, err = tea.NewProgram(model).Run()
	return err
}

func runArrange(cmd *cobra.Command, args []string) error {
	cfg, scheme, _, err := loadSetup()
	if err != nil {
		return err
	}

	events, info, err := midiio.ParseFile(args[0])
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg, scheme)
	if err != nil {
		return err
	}
	arranged, stats, err := pipeline.Process(events, opts)
	if err != nil {
		return err
	}

	if err := midiio.WriteFile(args[1], arranged, info.TempoBPM); err != nil {
		return err
	}
	fmt.Println(stats)
	fmt.Printf("Wrote %s\n", args[1])
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	port := recordPort
	if port == "" {
		ports := midiio.Ports()
		if len(ports) == 0 {
			return fmt.Errorf("no MIDI input port available")
		}
		port = ports[0]
	}

	rec := midiio.NewRecorder()
	listener := &midiio.Listener{}
	if err := listener.Open(port, rec.Record); err != nil {
		return err
	}
	defer listener.Close()

	rec.Start()
	fmt.Printf("Recording from %s. Press Enter to stop.\n", port)
	bufio.NewReader(os.Stdin).ReadString('\n')

	events := rec.Stop()
	if len(events) == 0 {
		return fmt.Errorf("nothing recorded")
	}
	if err := midiio.WriteFile(args[0], events, 120); err != nil {
		return err
	}
	fmt.Printf("Wrote %d events to %s\n", len(events), args[0])
	return nil
}
