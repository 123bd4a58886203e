// Command dpireplay feeds an offline pcap capture through the dpi engine,
// one record at a time, and prints a summary of the engine's packet, byte,
// flow, alert and anomaly counters. It is a demonstration driver only: packet capture itself is an
// explicit out-of-scope collaborator for the engine.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/pcap"

	"github.com/flowlens/dpi/internal/dpi"
	"github.com/flowlens/dpi/internal/dpiconfig"
	"github.com/flowlens/dpi/internal/logging"
)

func main() {
	path := flag.String("pcap", "", "path to a pcap file to replay")
	flag.Parse()

	if *path == "" {
		log.Fatal("missing -pcap")
	}

	logger := logging.New(logging.DefaultConfig())
	eng := dpi.Init(dpiconfig.Default(), logger)

	if err := replay(eng, *path, logger); err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	stats := eng.GetStats()
	fmt.Printf("packets=%d bytes=%d flows_created=%d alerts=%d anomalies=%d\n",
		stats.PacketsProcessed, stats.BytesProcessed, stats.FlowsCreated,
		stats.AlertsGenerated, stats.AnomaliesDetected)
}

func replay(eng *dpi.Engine, path string, logger *logging.Logger) error {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return fmt.Errorf("open pcap: %w", err)
	}
	defer handle.Close()

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	count := 0
	start := time.Now()

	for packet := range source.Packets() {
		if n, ok := eng.IngestGoPacket(packet, false); ok && n > 0 {
			logger.Debug("alerts generated", "count", n)
		}
		count++
	}

	logger.Info("replay complete", "packets", count, "elapsed", time.Since(start).String())
	return nil
}
