// Package serve boots the full automation daemon: inference client,
// agents, engine, scheduler and the HTTP surface.
package serve

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shivay00001/RemotePilot/internal/agents"
	"github.com/Shivay00001/RemotePilot/internal/browse"
	"github.com/Shivay00001/RemotePilot/internal/desktop"
	"github.com/Shivay00001/RemotePilot/internal/engine"
	"github.com/Shivay00001/RemotePilot/internal/history"
	"github.com/Shivay00001/RemotePilot/internal/memory"
	"github.com/Shivay00001/RemotePilot/internal/monitor"
	"github.com/Shivay00001/RemotePilot/internal/sandbox"
	"github.com/Shivay00001/RemotePilot/internal/scheduler"
	"github.com/Shivay00001/RemotePilot/internal/server"
	"github.com/Shivay00001/RemotePilot/internal/tasks"
	"github.com/Shivay00001/RemotePilot/pkg/config"
	"github.com/Shivay00001/RemotePilot/pkg/inference"
	"github.com/Shivay00001/RemotePilot/pkg/logger"
	"github.com/Shivay00001/RemotePilot/pkg/metrics"
)

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the automation daemon",
	Long: `Start the RemotePilot daemon that accepts natural-language goals over
HTTP, plans them into atomic actions and executes them with visual
verification and bounded re-planning.

The daemon provides:
- REST endpoints for task submission, state, cancellation and history
- WebSocket streaming of task logs and state transitions
- Cron-style scheduling of recurring goals
- System monitoring and an abort switch

Examples:
  remotepilot serve                                # Start with default settings
  remotepilot serve --port 8000                    # Start on custom port
  remotepilot serve --planner-model llama3.2       # Use a different planner model
  remotepilot serve --inference-endpoint http://gpu-box:11434`,
	Run: runServe,
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 8000, "Server port")
	ServeCmd.Flags().StringP("host", "H", "0.0.0.0", "Server host")
	ServeCmd.Flags().String("inference-endpoint", "http://localhost:11434", "Ollama-compatible inference endpoint")
	ServeCmd.Flags().String("planner-model", "llama3.2", "Model used for planning, security and research")
	ServeCmd.Flags().String("vision-model", "llava", "Multimodal model used for screen verification")
	ServeCmd.Flags().String("embedding-model", "nomic-embed-text", "Model used for memory embeddings")
	ServeCmd.Flags().Int("max-replans", 10, "Re-plan attempts before a task fails")
	ServeCmd.Flags().String("memory-file", "vector_memory.json", "Semantic memory persistence path")
	ServeCmd.Flags().String("history-db", "memory.db", "SQLite database path for task history")
	ServeCmd.Flags().String("audit-log", "logs/audit.log", "Audit trail path")

	viper.BindPFlag("port", ServeCmd.Flags().Lookup("port"))
	viper.BindPFlag("host", ServeCmd.Flags().Lookup("host"))
	viper.BindPFlag("inference_endpoint", ServeCmd.Flags().Lookup("inference-endpoint"))
	viper.BindPFlag("planner_model", ServeCmd.Flags().Lookup("planner-model"))
	viper.BindPFlag("vision_model", ServeCmd.Flags().Lookup("vision-model"))
	viper.BindPFlag("embedding_model", ServeCmd.Flags().Lookup("embedding-model"))
	viper.BindPFlag("max_replans", ServeCmd.Flags().Lookup("max-replans"))
	viper.BindPFlag("memory_file", ServeCmd.Flags().Lookup("memory-file"))
	viper.BindPFlag("history_db", ServeCmd.Flags().Lookup("history-db"))
	viper.BindPFlag("audit_log", ServeCmd.Flags().Lookup("audit-log"))
}

// timeoutEmbedder bounds every embedding call so a slow model host
// cannot stall planning or memory writes.
type timeoutEmbedder struct {
	client  *inference.Client
	timeout time.Duration
}

func (e timeoutEmbedder) Embed(ctx context.Context, model, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.client.Embed(ctx, model, text)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	appLog, err := logger.CreateLogger(cfg.LogFile, cfg.LogLevel, cfg.LogFormat, cfg.LogFile == "")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	audit, err := logger.NewAuditLogger(cfg.AuditLog)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}
	defer audit.Close()

	fmt.Printf("\U0001F680 Starting RemotePilot Daemon\n")
	fmt.Printf("\U0001F4E1 Host: %s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("\U0001F9E0 Planner: %s | Vision: %s | Embeddings: %s\n", cfg.PlannerModel, cfg.VisionModel, cfg.EmbeddingModel)
	fmt.Printf("\U0001F517 Inference: %s\n", cfg.InferenceEndpoint)
	fmt.Printf("\U0001F4BE History Database: %s\n", cfg.HistoryDB)
	fmt.Printf("\U0001F4DC Audit Trail: %s\n", cfg.AuditLog)

	m := metrics.New()
	client := inference.NewClient(cfg.InferenceEndpoint, appLog, m)
	checkModels(client, cfg, appLog)

	memStore := memory.NewStore(cfg.MemoryFile, cfg.EmbeddingModel, cfg.VerifyThreshold,
		timeoutEmbedder{client: client, timeout: cfg.EmbedTimeout}, appLog)

	histStore, err := history.NewStore(cfg.HistoryDB, appLog)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer histStore.Close()

	mon := monitor.New(appLog)

	screen := desktop.NewHeadless(appLog)
	shell := sandbox.NewProcessSandbox(sandbox.CuratedEnv(), appLog)
	newBrowser := func() browse.Browser { return browse.NewHTTPBrowser(appLog) }

	planner := agents.NewPlanner(client, memStore, cfg.PlannerModel, cfg.MemoryTopK, appLog)
	security := agents.NewSecurity(client, cfg.PlannerModel, cfg.SecurityLLMTimeout, appLog)
	action := agents.NewAction(screen, shell, newBrowser, cfg.BrowseContentLimit, cfg.TypeInterval, appLog)
	vision := agents.NewVision(client, screen, cfg.VisionModel, appLog)
	verifier := agents.NewVerifier(vision, appLog)
	research := agents.NewResearch(client, cfg.PlannerModel, cfg.ResearchContentLimit, appLog)

	registry := tasks.NewRegistry(cfg.SubscriberBacklog, m, appLog)

	eng, err := engine.New(engine.Options{
		Registry: registry,
		Planner:  planner,
		Action:   action,
		Verifier: verifier,
		Security: security,
		Vision:   vision,
		Research: research,
		Memory:   memStore,
		History:  histStore,
		Audit:    audit,
		Abort:    mon,
		Metrics:  m,
		Logger:   appLog,

		MaxReplans:        cfg.MaxReplans,
		PlanCallTimeout:   cfg.PlanCallTimeout,
		StepVerifyTimeout: cfg.StepVerifyTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	sched := scheduler.New(func(goal string) { eng.Submit(goal) }, appLog)
	sched.Start()

	srv := server.New(server.Options{
		Engine:    eng,
		Monitor:   mon,
		Scheduler: sched,
		History:   histStore,
		Metrics:   m,
		Logger:    appLog,
		Host:      cfg.Host,
		Port:      cfg.Port,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("✅ Server started on %s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("\U0001F517 Submit endpoint: http://%s:%d/task/submit\n", cfg.Host, cfg.Port)
	fmt.Printf("\U0001F4E1 Log stream: ws://%s:%d/ws/logs\n", cfg.Host, cfg.Port)

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	fmt.Println("\n\U0001F6D1 Shutting down daemon...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.WithField("component", "serve").Errorf("Server forced to shutdown: %v", err)
	}

	sched.Stop()
	eng.Shutdown()

	fmt.Println("✅ Daemon shutdown complete")
}

// checkModels warns about configured models the inference endpoint does
// not report. Startup continues either way.
func checkModels(client *inference.Client, cfg *config.Config, appLog *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models, err := client.Tags(ctx)
	if err != nil {
		appLog.Warnf("could not list models at %s: %v", cfg.InferenceEndpoint, err)
		return
	}

	available := make(map[string]bool)
	for _, model := range models {
		available[model.Name] = true
		available[strings.SplitN(model.Name, ":", 2)[0]] = true
	}

	for _, want := range []string{cfg.PlannerModel, cfg.VisionModel, cfg.EmbeddingModel} {
		if !available[want] && !available[strings.SplitN(want, ":", 2)[0]] {
			appLog.Warnf("model %s is not available at %s", want, cfg.InferenceEndpoint)
		}
	}
}
