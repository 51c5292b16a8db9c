// Command meremaild is the meremail server process: it wires the Store,
// Importer, Rule Engine, IMAP Ingestion, Send Queue, Scheduler, and HTTP
// Surface together and runs them concurrently until an OS signal arrives
// (spec §2 "Control flow").
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	climod "github.com/jcgurango/meremail/internal/cli"
	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/httpapi"
	"github.com/jcgurango/meremail/internal/imapingest"
	"github.com/jcgurango/meremail/internal/importer"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/ruleengine"
	"github.com/jcgurango/meremail/internal/scheduler"
	"github.com/jcgurango/meremail/internal/sendqueue"
	"github.com/jcgurango/meremail/internal/store"
)

func main() {
	app := climod.New(runServer)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(*cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("resolve configuration: %w", err)
	}
	logging.Configure(!cfg.Production)
	log := logging.Logger{Name: "meremaild"}

	db, err := store.Open(cfg.DatabasePath, !cfg.Production)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	st := store.New(db)

	// Open Question #1 resolution: any RuleApplication left `running` from a
	// prior process (crash mid-batch) is marked `failed` at startup, since
	// its goroutine no longer exists to finish it.
	if n, err := st.FailStaleRunningApplications(); err != nil {
		log.Error("mark stale rule applications failed", err)
	} else if n > 0 {
		log.Warn("marked %d stale rule application(s) failed", n)
	}

	rules := ruleengine.New(st, cfg.TrashFolderID)
	imp := importer.New(st, rules, importer.Config{
		AttachmentDir:    filepath.Join(cfg.DataRoot, "attachments"),
		EMLBackupDir:     filepath.Join(cfg.DataRoot, "eml-backup"),
		EMLBackupEnabled: cfg.EMLBackupEnabled,
	})
	queue := sendqueue.New(st, cfg, 4)
	sched := scheduler.New(st, cfg)
	server := httpapi.New(st, rules, imp, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	runLoop := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	runLoop(func(ctx context.Context) { imapingest.Run(ctx, cfg, st, imp) })
	runLoop(queue.Run)
	runLoop(sched.Run)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Handler(),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down")
	cancel()
	_ = httpSrv.Shutdown(context.Background())
	wg.Wait()
	return nil
}
