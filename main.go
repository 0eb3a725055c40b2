package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/moyoez/docconvert-go/api"
	"github.com/moyoez/docconvert-go/api/notifyhub"
	"github.com/moyoez/docconvert-go/notify"
	"github.com/moyoez/docconvert-go/session"
	"github.com/moyoez/docconvert-go/share"
	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/transfer"
	"github.com/moyoez/docconvert-go/types"
)

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlagOverrides(&appCfg, cfg)
	if err := tool.ValidateConfig(appCfg); err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.CurrentConfig = appCfg

	if cfg.UsePreflight {
		serverURL, _ := tool.ParseServerURL(appCfg.ServerURL)
		if rtt, err := tool.ProbeHost(serverURL, 3*time.Second); err != nil {
			tool.DefaultLogger.Warnf("[Preflight] %v", err)
		} else {
			tool.DefaultLogger.Infof("[Preflight] %s reachable (rtt %s)", serverURL.Hostname(), rtt)
		}
	}

	client, err := transfer.NewClient(appCfg.ServerURL,
		transfer.WithHTTPClient(tool.NewHTTPClient(time.Duration(appCfg.RequestTimeoutSeconds)*time.Second)),
		transfer.WithRateLimit(appCfg.RequestsPerSecond),
	)
	if err != nil {
		tool.DefaultLogger.Fatalf("Invalid server URL: %v", err)
	}

	orch := session.NewOrchestrator(client, session.Options{
		PollInterval:        tool.PollInterval(appCfg),
		MaxNotFoundAttempts: appCfg.MaxNotFoundAttempts,
		DefaultLanguage:     appCfg.DefaultLanguage,
		MaxUploadBytes:      appCfg.MaxUploadBytes,
	})
	guard := session.NewLifecycleGuard(orch, client, time.Duration(appCfg.CleanupTimeoutSeconds)*time.Second)
	orch.AddActiveListener(guard)

	history := share.NewHistory(time.Duration(appCfg.HistoryTTLSeconds) * time.Second)
	orch.AddObserver(history)
	orch.AddObserver(consoleObserver())
	if appCfg.NotifySocket != "" {
		orch.AddObserver(notify.NewSocketNotifier(appCfg.NotifySocket))
	}

	defaultMode, _ := types.ParseMode(appCfg.DefaultMode)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if cfg.UseServe {
		hub := notifyhub.New()
		orch.AddObserver(hub)
		apiServer := api.NewServer(appCfg.ListenPort, api.Deps{
			Orchestrator: orch,
			Guard:        guard,
			History:      history,
			Hub:          hub,
			DefaultMode:  defaultMode,
		})
		go func() {
			if err := apiServer.Start(); err != nil {
				tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
			}
		}()

		<-sigCh
		tool.DefaultLogger.Info("Shutting down")
		shutdown(orch, guard)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiServer.Shutdown(ctx)
		return
	}

	os.Exit(runOnce(cfg, defaultMode, client, orch, guard, sigCh))
}

// runOnce converts the -files selection, waits for the outcome and optionally
// saves the archive. It returns the process exit code.
func runOnce(cfg types.Config, mode types.Mode, client *transfer.Client, orch *session.Orchestrator, guard *session.LifecycleGuard, sigCh <-chan os.Signal) int {
	if cfg.UseMode != "" {
		m, ok := types.ParseMode(cfg.UseMode)
		if !ok {
			tool.DefaultLogger.Errorf("Unknown mode %q", cfg.UseMode)
			return 2
		}
		mode = m
	}
	files, err := tool.CollectFiles(tool.SplitFileList(cfg.UseFiles))
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return 2
	}
	if _, err := orch.Submit(types.FileSelection{Files: files, Mode: mode, Language: cfg.UseLang}); err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sigCh:
			tool.DefaultLogger.Info("Interrupted, abandoning session")
			cancel()
		case <-ctx.Done():
		}
	}()

	snap, err := orch.Wait(ctx)
	if err != nil {
		shutdown(orch, guard)
		return 130
	}
	if snap.Status != types.StatusCompleted {
		tool.DefaultLogger.Errorf("Conversion failed: %s", snap.ErrorMessage)
		shutdown(orch, guard)
		return 1
	}
	tool.DefaultLogger.Infof("Converted %d file(s), download at %s", snap.FileCount, snap.DownloadURL)

	if cfg.UseOutPath == "" {
		// exit without retiring so the printed URL stays valid
		return 0
	}
	defer shutdown(orch, guard)
	if err := saveArchive(ctx, client, snap.SessionID, cfg.UseOutPath); err != nil {
		tool.DefaultLogger.Errorf("Failed to save archive: %v", err)
		return 1
	}
	return 0
}

func saveArchive(ctx context.Context, client *transfer.Client, sessionId, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	n, err := client.Download(ctx, sessionId, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(outPath)
		return err
	}
	tool.DefaultLogger.Infof("Saved %d bytes to %s", n, outPath)
	return nil
}

// shutdown releases the active session on the server, then drops it locally.
func shutdown(orch *session.Orchestrator, guard *session.LifecycleGuard) {
	guard.Abandon(context.Background())
	orch.Close()
	guard.Wait()
}

func consoleObserver() session.Observer {
	return session.ObserverFuncs{
		StatusChange: func(snap types.Snapshot) {
			tool.DefaultLogger.Infof("[%s] %s", snap.LocalID, snap.Status)
		},
		Progress: func(snap types.Snapshot) {
			tool.DefaultLogger.Infof("[%s] Processing %d/%d (%.1f%%)", snap.LocalID, snap.Progress.Current, snap.Progress.Total, snap.Percent)
		},
	}
}
