package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"netvis/internal/config"
	"netvis/internal/controls"
	"netvis/internal/hexdump"
	"netvis/internal/loop"
	"netvis/internal/network"
	"netvis/internal/observability"
	"netvis/internal/pcap"
	"netvis/internal/render"
	"netvis/internal/session"
	"netvis/internal/stats"
	"netvis/internal/view"
)

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Open the interactive window",
		RunE:  runView,
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the render loop headless and report statistics",
		RunE:  runHeadless,
	}
	cmd.Flags().Duration("duration", 0, "Stop after this long (default: until interrupted)")
	cmd.Flags().String("pcap-out", "", "Stream the packet history to this pcap file")
	cmd.Flags().String("mirror", "", "Mirror history frames over UDP to host:port")
	cmd.Flags().String("stats-export", "", "Export statistics as JSON to this file")
	cmd.Flags().Bool("metrics", false, "Serve Prometheus metrics")
	cmd.Flags().String("metrics-addr", "", "Metrics listen address (host:port)")
	return cmd
}

func newListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print frames mirrored by another netvis run",
		RunE:  runListen,
	}
	cmd.Flags().String("addr", "127.0.0.1:9009", "UDP address to listen on")
	cmd.Flags().Bool("dump", false, "Print a full layer dump of each frame")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the canvas after N frames to a PNG file",
		RunE:  runSnapshot,
	}
	cmd.Flags().Int("frames", 30, "Display frames to advance before rendering")
	cmd.Flags().StringP("out", "o", "netvis.png", "Output PNG path")
	cmd.Flags().Float64Slice("select", nil, "Click x,y before rendering to outline the entity there")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Hex dump the entity at x,y after N frames, or a frame of a pcap file",
		RunE:  runInspect,
	}
	cmd.Flags().Int("frames", 30, "Display frames to advance before hit-testing")
	cmd.Flags().Float64("x", 0, "Canvas x coordinate")
	cmd.Flags().Float64("y", 0, "Canvas y coordinate")
	cmd.Flags().String("pcap", "", "Inspect a frame of this pcap file instead of the live engine")
	cmd.Flags().Int("index", 0, "Frame index in the pcap file")
	return cmd
}

func runView(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sched := loop.NewFrameScheduler()
	canvas := &render.DisplayList{}
	mgr, err := session.NewManager(cfg, sched, canvas, stats.NewCollector(), nil)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if err := mgr.Start(); err != nil {
		return err
	}
	defer mgr.Stop()

	game, err := view.New(mgr, sched, canvas, cfg.Display)
	if err != nil {
		return err
	}
	return view.Run(game, cfg.Display)
}

func runHeadless(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printBanner(cfg)

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, d)
		defer stop()
	}

	// Create stats collector and reporter
	statsCollector := stats.NewCollector()
	reporter := stats.NewReporter(statsCollector, cfg.Stats.ReportIntervalSec, cfg.Stats.ExportFile)
	if cfg.Stats.Enabled {
		reporter.StartPeriodicReport(ctx)
	}

	var metrics *observability.RenderCollector
	if cfg.Metrics.Enabled {
		metrics, err = observability.NewRenderCollector(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	sched := loop.NewTickerScheduler(time.Second / time.Duration(cfg.Display.FPS))
	mgr, err := session.NewManager(cfg, sched, nil, statsCollector, metrics)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if cfg.History.PcapFile != "" {
		f, err := os.Create(cfg.History.PcapFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cfg.History.PcapFile, err)
		}
		defer f.Close()
		w, err := pcap.NewWriter(f, statsCollector.StartTime, time.Duration(cfg.History.TickMs)*time.Millisecond)
		if err != nil {
			return err
		}
		mgr.History().AddSink(w)
		defer func() {
			log.WithFields(log.Fields{"file": cfg.History.PcapFile, "frames": w.Count()}).Info("Packet history exported")
		}()
	}

	if cfg.History.MirrorAddr != "" {
		mirror, err := network.NewMirror(cfg.History.MirrorAddr)
		if err != nil {
			return err
		}
		defer mirror.Close()
		mgr.History().AddSink(mirror)
		log.WithFields(log.Fields{
			"local_addr": mirror.LocalAddr(),
			"target":     cfg.History.MirrorAddr,
		}).Info("Mirroring frames")
	}

	if err := mgr.Start(); err != nil {
		return err
	}

	fmt.Println("Running render loop...")
	sched.Run(ctx)
	mgr.Stop()
	log.WithField("tick", mgr.Loop().Tick()).Info("Render loop finished")

	for _, e := range mgr.History().Entries() {
		fmt.Println(controls.EntryLine(e))
	}

	// Print final statistics
	if cfg.Stats.Enabled {
		reporter.PrintFinalReport()
		if err := reporter.ExportJSON(); err != nil {
			log.WithError(err).Warn("Failed to export statistics")
		}
	}
	return mgr.Loop().Err()
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	frames, _ := cmd.Flags().GetInt("frames")
	out, _ := cmd.Flags().GetString("out")
	at, _ := cmd.Flags().GetFloat64Slice("select")
	if len(at) != 0 && len(at) != 2 {
		return fmt.Errorf("--select takes x,y, got %d values", len(at))
	}

	raster := render.NewRaster(cfg.Display.Width, cfg.Display.Height)
	mgr, err := advance(cfg, raster, frames)
	if err != nil {
		return err
	}
	defer mgr.Stop()

	if len(at) == 2 {
		sel := mgr.Select(at[0], at[1])
		render.NewPainter(session.Style(cfg.Render)).Paint(raster, mgr.Loop().Catalog(), sel)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()
	if err := raster.EncodePNG(f); err != nil {
		return err
	}

	log.WithFields(log.Fields{"file": out, "tick": mgr.Loop().Tick()}).Info("Snapshot written")
	return nil
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("pcap"); path != "" {
		index, _ := cmd.Flags().GetInt("index")
		return inspectPcap(path, index)
	}

	frames, _ := cmd.Flags().GetInt("frames")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")

	mgr, err := advance(cfg, nil, frames)
	if err != nil {
		return err
	}
	defer mgr.Stop()

	fmt.Println(hexdump.Format(mgr.Select(x, y)).Render())
	return nil
}

// advance starts a session on a frame scheduler and runs n display frames.
func advance(cfg *config.Config, surface render.Surface, n int) (*session.Manager, error) {
	sched := loop.NewFrameScheduler()
	mgr, err := session.NewManager(cfg, sched, surface, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := mgr.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		sched.Advance()
	}
	if err := mgr.Loop().Err(); err != nil {
		mgr.Stop()
		return nil, err
	}
	return mgr, nil
}

func inspectPcap(path string, index int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	frames, err := pcap.ReadFrames(f)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(frames) {
		return fmt.Errorf("frame index %d out of range (%d frames)", index, len(frames))
	}

	fr := frames[index]
	d := hexdump.FormatBytes(fr.Data)
	d.Title = fmt.Sprintf("frame %d @ %s", fr.Index, fr.Timestamp.Format(time.RFC3339Nano))
	fmt.Println(d.Render())
	fmt.Print(fr.Packet.Dump())
	return nil
}

func runListen(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	dump, _ := cmd.Flags().GetBool("dump")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recv, err := network.Listen(addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	recv.Start(ctx)
	log.WithField("addr", recv.LocalAddr()).Info("Listening for mirrored frames")

	n := 0
	for f := range recv.Frames() {
		fmt.Printf("#%d from %s: %s\n", n, f.From, f.Packet)
		if dump {
			fmt.Print(f.Packet.Dump())
		}
		n++
	}
	log.WithField("frames", n).Info("Listener stopped")
	return nil
}
