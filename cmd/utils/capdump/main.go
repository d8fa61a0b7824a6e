package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hako/durafmt"

	"justapengu.in/telemetry/internal/capture"
	"justapengu.in/telemetry/pkg/f1"
)

var (
	capturePath string
	verbose     bool
	dumpHex     bool
	onlyType    int
)

func init() {
	flag.StringVar(&capturePath, "f", "latest.cap", "capture file to inspect")
	flag.BoolVar(&verbose, "v", false, "dump every decoded packet")
	flag.BoolVar(&dumpHex, "hex", false, "hex dump every raw packet")
	flag.IntVar(&onlyType, "type", -1, "only show packets with this packet id")
	flag.Parse()
}

var (
	timestampColour = color.New(color.FgHiBlack)
	typeColour      = color.New(color.FgCyan, color.Bold)
	errorColour     = color.New(color.FgRed)
	summaryColour   = color.New(color.FgGreen, color.Bold)
)

type typeSummary struct {
	count uint64
	bytes uint64
}

func main() {
	stream, err := capture.Open(capturePath)

	if err != nil {
		errorColour.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	defer stream.Close()

	summaries := make(map[f1.PacketType]*typeSummary)
	sessions := make(map[uint64]bool)

	var (
		frames       uint64
		totalBytes   uint64
		decodeErrors uint64
		lastFrame    int64
	)

	for {
		frame, ok := stream.Next()

		if !ok {
			break
		}

		frames++
		totalBytes += uint64(len(frame.Data))
		lastFrame = frame.Timestamp

		packet, err := f1.Decode(frame.Data)

		if err != nil {
			decodeErrors++

			timestampColour.Printf("[%10s] ", time.Duration(frame.Timestamp)*time.Millisecond)
			errorColour.Printf("%s\n", err)

			continue
		}

		summary, ok := summaries[packet.Type()]

		if !ok {
			summary = &typeSummary{}
			summaries[packet.Type()] = summary
		}

		summary.count++
		summary.bytes += uint64(len(frame.Data))
		sessions[packet.Header.SessionUID] = true

		if onlyType >= 0 && int(packet.Type()) != onlyType {
			continue
		}

		timestampColour.Printf("[%10s] ", time.Duration(frame.Timestamp)*time.Millisecond)
		typeColour.Printf("%-20s", packet.Type())
		fmt.Printf(" frame %-8d session %016x t=%.3fs (%d bytes)\n", packet.Header.FrameIdentifier, packet.Header.SessionUID, packet.Header.SessionTime, len(frame.Data))

		if verbose {
			spew.Dump(packet.Data)
		}

		if dumpHex {
			fmt.Print(hex.Dump(frame.Data))
		}
	}

	if err := stream.Err(); err != nil {
		errorColour.Printf("capture ended early: %s\n", err)
	}

	printSummary(summaries, frames, totalBytes, decodeErrors, len(sessions), time.Duration(lastFrame)*time.Millisecond)
}

func printSummary(summaries map[f1.PacketType]*typeSummary, frames, totalBytes, decodeErrors uint64, sessions int, duration time.Duration) {
	types := make([]f1.PacketType, 0, len(summaries))

	for packetType := range summaries {
		types = append(types, packetType)
	}

	sort.Slice(types, func(i, j int) bool {
		return types[i] < types[j]
	})

	fmt.Println()
	summaryColour.Printf("%s frames, %s over %s in %d session(s)\n", humanize.Comma(int64(frames)), humanize.Bytes(totalBytes), durafmt.Parse(duration), sessions)

	for _, packetType := range types {
		summary := summaries[packetType]

		fmt.Printf("  %-20s %10s packets %10s\n", packetType, humanize.Comma(int64(summary.count)), humanize.Bytes(summary.bytes))
	}

	if decodeErrors > 0 {
		errorColour.Printf("  %d packets could not be decoded\n", decodeErrors)
	}
}
