// Command spool-demo exercises the progress renderer against a real
// terminal: spinner styles, parallel progress bars, job trees, multi-stage
// operations, and log interleaving.
//
// Usage:
//
//	go run ./cmd/spool-demo bars
//	go run ./cmd/spool-demo tree --interval 100ms
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/larkey/spool/pkg/progress"
)

var banner = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("12")).
	Render

func main() {
	var (
		interval time.Duration
		textMode bool
	)

	root := &cobra.Command{
		Use:   "spool-demo",
		Short: "Showcase for the spool progress renderer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			progress.SetInterval(interval)
			if textMode {
				progress.SetOutput(progress.OutputText)
			}
		},
	}
	root.PersistentFlags().DurationVar(&interval, "interval", 200*time.Millisecond, "refresh interval")
	root.PersistentFlags().BoolVar(&textMode, "text", false, "force one-line-per-update text output")

	root.AddCommand(spinnersCmd(), barsCmd(), treeCmd(), stagesCmd(), logsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func spinnersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spinners",
		Short: "One job per spinner style",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(banner("spinners"))
			names := []string{"mini_dot", "dot", "line", "points", "meter", "arc", "ellipsis", "moon"}
			jobs := make([]*progress.Job, 0, len(names))
			for _, name := range names {
				j := progress.NewJob().
					Body(fmt.Sprintf("{{ spinner(%q) }} {{ message }} {{ elapsed()|dim }}", name)).
					Prop("message", name).
					Start()
				jobs = append(jobs, j)
			}
			time.Sleep(4 * time.Second)
			for _, j := range jobs {
				j.SetStatus(progress.StatusDone)
			}
			progress.Stop()
			return nil
		},
	}
}

func barsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bars",
		Short: "Parallel downloads with byte progress, rate, and ETA",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(banner("bars"))
			files := map[string]int{
				"base-image.tar": 48 << 20,
				"layers.tar":     16 << 20,
				"config.json":    512 << 10,
			}

			var g errgroup.Group
			for name, size := range files {
				j := progress.NewJob().
					Body("{{ spinner() }} {{ message }} {{ progress_bar(0) }} {{ bytes() }} {{ rate()|dim }}").
					Prop("message", name).
					ProgressTotal(size).
					Start()
				g.Go(func() error {
					for done := 0; done < size; {
						chunk := size/50 + rand.Intn(size/20)
						done += chunk
						j.Increment(chunk)
						time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
					}
					j.SetStatus(progress.StatusDone)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			progress.Stop()
			return nil
		},
	}
}

func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Nested jobs with mixed outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(banner("tree"))
			build := progress.NewJob().
				Body("{{ spinner() }} {{ message|bold }} {{ elapsed()|dim }}").
				Prop("message", "building project").
				Start()

			compile := build.Add(progress.NewJob().
				Body("{{ spinner() }} {{ message }} {{ percentage() }}").
				Prop("message", "compile").
				ProgressTotal(40).
				Build())
			vet := build.Add(progress.NewJob().
				Prop("message", "vet").
				Build())
			pkg := build.Add(progress.NewJob().
				Prop("message", "package").
				Status(progress.StatusPending).
				Build())

			for range 40 {
				compile.Increment(1)
				time.Sleep(60 * time.Millisecond)
			}
			compile.SetStatus(progress.StatusDone)
			compile.Println("compiled 40 packages")

			time.Sleep(800 * time.Millisecond)
			vet.SetStatus(progress.StatusWarn)
			vet.Message("vet: 2 suspicious constructs")

			pkg.SetStatus(progress.StatusRunning)
			time.Sleep(1200 * time.Millisecond)
			pkg.SetStatus(progress.StatusDone)

			build.SetStatus(progress.StatusDone)
			progress.Stop()
			return nil
		},
	}
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Sequential operations sharing one overall indicator",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(banner("stages"))
			stages := []struct {
				name  string
				items int
			}{
				{"fetch", 30},
				{"unpack", 80},
				{"verify", 20},
			}

			j := progress.NewJob().
				Body("{{ spinner() }} {{ message }} {{ progress_bar(0) }} {{ percentage() }} eta {{ eta() }}").
				Start()
			j.StartOperations(len(stages))

			for i, stage := range stages {
				if i > 0 {
					j.NextOperation()
				}
				j.Message(stage.name)
				j.ProgressTotal(stage.items)
				for range stage.items {
					j.Increment(1)
					time.Sleep(30 * time.Millisecond)
				}
			}
			j.SetStatus(progress.StatusDone)
			j.Message("all stages complete")
			progress.Stop()
			return nil
		},
	}
}

func logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Structured logs interleaved with a live progress region",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := tint.NewHandler(os.Stderr, &tint.Options{
				Level:      slog.LevelDebug,
				TimeFormat: time.Kitchen,
			})
			slog.SetDefault(slog.New(progress.NewSlogHandler(handler)))

			fmt.Println(banner("logs"))
			j := progress.NewJob().
				Body("{{ spinner() }} {{ message }} {{ progress_bar(0) }} {{ percentage() }}").
				Prop("message", "indexing").
				ProgressTotal(60).
				Start()

			for i := range 60 {
				j.Increment(1)
				switch {
				case i == 20:
					slog.Info("checkpoint reached", "items", i)
				case i == 40:
					slog.Warn("slow shard", "shard", 7, "lag", "120ms")
				case i%15 == 0:
					slog.Debug("tick", "items", i)
				}
				time.Sleep(80 * time.Millisecond)
			}
			j.SetStatus(progress.StatusDone)
			progress.Stop()
			return nil
		},
	}
}
