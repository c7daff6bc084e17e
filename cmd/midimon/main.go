// midimon is a standalone diagnostic for checking what a MIDI keyboard
// actually sends before blaming the mapper.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/EdmondVirelle/cyber-qin/keymap"
	"github.com/EdmondVirelle/cyber-qin/midiio"
	"github.com/EdmondVirelle/cyber-qin/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(os.Args[2:])
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List MIDI input ports")
	fmt.Println("  monitor [port]  - Print incoming note events")
	fmt.Println("  poll            - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []string, 1)
	go func() {
		ch <- midiio.Ports()
	}()

	select {
	case ports := <-ch:
		if len(ports) == 0 {
			fmt.Println("  (none)")
		}
		for i, name := range ports {
			fmt.Printf("  %d: %s\n", i, name)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI backend is hung.")
	}
}

func monitor(args []string) {
	port := ""
	if len(args) > 0 {
		port = args[0]
	} else {
		ports := midiio.Ports()
		if len(ports) == 0 {
			fmt.Println("No MIDI input ports found.")
			return
		}
		port = ports[0]
	}

	listener := &midiio.Listener{}
	err := listener.Open(port, func(e pipeline.Event) {
		kind := "off"
		if e.Kind == pipeline.NoteOn {
			kind = "on "
		}
		fmt.Printf("[%s] ch:%2d note %s %-4s vel:%3d\n",
			time.Now().Format("15:04:05.000"), e.Channel, kind, keymap.NoteName(e.Note), e.Velocity)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer listener.Close()

	fmt.Printf("Monitoring %s. Ctrl+C to exit.\n", port)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds. Ctrl+C to exit.")

	last := ""
	for {
		names := midiio.Ports()
		current := strings.Join(names, ",")
		if current != last {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", names)
			last = current
		}
		time.Sleep(2 * time.Second)
	}
}
