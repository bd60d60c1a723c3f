// Command backtestdemo wires a Clock, EventBus, and Engine together
// over a small synthetic backtest window, printing each dispatched bar
// and every trigger firing to stdout. It exists purely to exercise the
// engine end to end; it is not part of the library API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	engine "github.com/xiaoyu21git/astockquant"
	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/trigger"
)

type marketDataPayload struct {
	price float64
}

func (p marketDataPayload) PayloadType() string { return "MarketData.Bar" }
func (p marketDataPayload) Clone() event.Payload { return p }

type stdoutListener struct{}

func (stdoutListener) OnStateChanged(old, new engine.State) {
	fmt.Printf("engine: %s -> %s\n", old, new)
}
func (stdoutListener) OnError(err error) { fmt.Println("engine error:", err) }
func (stdoutListener) OnStatisticsUpdated(stats engine.Statistics) {
	fmt.Printf("stats: processed=%d triggers=%d errors=%d\n", stats.EventsProcessed, stats.TriggersFired, stats.Errors)
}

func main() {
	log := engine.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)

	eng := engine.New(log)
	eng.RegisterListener(stdoutListener{})

	cfg := engine.DefaultConfig()
	cfg.Mode = "backtest"
	cfg.Backtest.StartTime = start
	cfg.Backtest.EndTime = end
	cfg.Backtest.Step = time.Minute
	cfg.Bus.Policy = "immediate"
	cfg.Bus.Mode = "sync"

	if err := eng.Initialize(cfg); err != nil {
		fmt.Println("initialize failed:", err)
		os.Exit(1)
	}

	printTrigger, err := trigger.NewCronTrigger("@every 2m", start, trigger.ActionFunc(func(e event.Event, now time.Time) error {
		fmt.Printf("trigger fired at %s for event %s\n", now.Format(time.RFC3339), e.ID)
		return nil
	}))
	if err != nil {
		fmt.Println("trigger setup failed:", err)
		os.Exit(1)
	}
	if err := eng.RegisterTrigger(printTrigger); err != nil {
		fmt.Println("register trigger failed:", err)
		os.Exit(1)
	}

	_, err = eng.Bus().Subscribe(func(e event.Event) {
		fmt.Printf("bar @ %s price=%.2f\n", e.Timestamp.Format(time.RFC3339), e.Payload.(marketDataPayload).price)
	}, event.MarketData)
	if err != nil {
		fmt.Println("subscribe failed:", err)
		os.Exit(1)
	}

	price := 100.0
	for ts := start; ts.Before(end) || ts.Equal(end); ts = ts.Add(time.Minute) {
		price += 0.5
		eng.ScheduleEvent(event.New(event.MarketData, ts, "demo-feed", nil, marketDataPayload{price: price}))
	}

	if err := eng.Start(); err != nil {
		fmt.Println("start failed:", err)
		os.Exit(1)
	}

	for eng.State() != engine.StateStopped {
		time.Sleep(20 * time.Millisecond)
	}
}
