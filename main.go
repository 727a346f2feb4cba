// Package main provides the headless entry point: it loads a network and a
// saved selection and talks to the simulation service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"nest-selector/internal/app"
	"nest-selector/internal/config"
	"nest-selector/internal/mask"
	"nest-selector/internal/render"
	"nest-selector/internal/sim"
	"nest-selector/internal/version"

	"github.com/dustin/go-humanize"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", config.DefaultPath(), "configuration file")
	modelPath := flag.String("model", "", "network description (JSON)")
	selectionPath := flag.String("selection", "", "saved selection to load")
	action := flag.String("action", "payload", "connect, simulate, stream, abort or payload")
	simTime := flag.String("time", "", "simulation time in ms (overrides the configuration)")
	pngPath := flag.String("png", "", "write a snapshot of the loaded selection")
	watch := flag.Bool("watch", false, "reload the configuration file while running")
	flag.Parse()

	log.Printf("Starting %s", version.String())

	if err := run(*configPath, *modelPath, *selectionPath, *action, *simTime, *pngPath, *watch); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, modelPath, selectionPath, action, simTime, pngPath string, watch bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if simTime != "" {
		cfg.SimulationTime = simTime
	}

	calls := make(chan func(), 64)
	sess, err := app.New(cfg, &app.StaticPanel{Shape: mask.Rectangular}, nil, func(f func()) { calls <- f })
	if err != nil {
		return err
	}

	if modelPath != "" {
		data, err := os.ReadFile(modelPath)
		if err != nil {
			return err
		}
		advisories, err := sess.LoadModel(data)
		if err != nil {
			return fmt.Errorf("load %s: %w", modelPath, err)
		}
		for _, a := range advisories {
			log.Printf("warning: %s", a)
		}
		log.Printf("Loaded %s (%s)", modelPath, humanize.Bytes(uint64(len(data))))
	}
	if selectionPath != "" {
		if err := sess.LoadSelectionFile(selectionPath); err != nil {
			return fmt.Errorf("load %s: %w", selectionPath, err)
		}
		log.Printf("Selection: %d masks, %d devices", len(sess.Masks()), sess.Devices().Count())
	}
	if pngPath != "" {
		if err := render.WritePNG(pngPath, sess.Frame()); err != nil {
			return err
		}
	}

	if watch {
		w, err := config.NewWatcher(configPath, func(c *config.Config) {
			calls <- func() { sess.ApplyConfig(c) }
		})
		if err != nil {
			log.Printf("config: cannot watch %s: %v", configPath, err)
		} else {
			w.Start()
			defer w.Stop()
		}
	}

	var (
		once    sync.Once
		done    = make(chan struct{})
		failure error
	)
	finish := func(data interface{}) {
		r, _ := data.(app.ServiceResult)
		once.Do(func() {
			failure = r.Err
			if len(r.Response) > 0 {
				fmt.Println(string(r.Response))
			}
			close(done)
		})
	}
	sess.On(app.EventServiceResponse, finish)
	sess.On(app.EventServiceError, finish)
	sess.On(app.EventStreamEnded, finish)

	switch action {
	case "payload":
		p, err := sess.Payload(true)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	case "connect":
		err = sess.ConnectService()
	case "simulate":
		err = sess.Simulate()
	case "stream":
		sess.On(app.EventStreamMessage, func(data interface{}) {
			if msg, ok := data.(sim.StreamMessage); ok && msg.PlotResults != nil {
				log.Printf("t=%.1f ms, %d spikes", msg.PlotResults.Time, sess.Buffers().SpikeCount())
			}
		})
		err = sess.StreamSimulate()
	case "abort":
		sess.AbortSimulation()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	interrupted := ctx.Done()
	for {
		select {
		case f := <-calls:
			f()
		case <-interrupted:
			log.Printf("Interrupted, aborting")
			interrupted = nil
			sess.AbortSimulation()
		case <-done:
			if action == "stream" {
				b := sess.Buffers()
				log.Printf("Stream finished: %d messages, %d spikes, %d V_m samples", b.Messages, b.SpikeCount(), len(b.Vm))
			}
			return failure
		}
	}
}
