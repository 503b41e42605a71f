// Package mock runs the fixture-backed inference server used for
// development and end-to-end tests.
package mock

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shivay00001/RemotePilot/internal/mockollama"
	"github.com/Shivay00001/RemotePilot/pkg/logger"
)

// MockOllamaCmd represents the mockollama command
var MockOllamaCmd = &cobra.Command{
	Use:   "mockollama",
	Short: "Serve canned model responses over the Ollama wire format",
	Long: `Serve fixture JSON files as model responses so the daemon can run
without a real model host.

Fixtures are keyed by model name: "llama3.2.json" answers every
/api/generate call for llama3.2 with the same response, while a
"llama3.2/" directory holds a scripted conversation (1.json, 2.json,
... served in order, the last file repeating once exhausted).
Embeddings are deterministic, so memory retrieval behaves the same on
every run.

Examples:
  remotepilot mockollama --fixtures ./fixtures
  remotepilot mockollama --port 11434`,
	Run: runMock,
}

func init() {
	MockOllamaCmd.Flags().Int("port", 11434, "Mock server port")
	MockOllamaCmd.Flags().String("fixtures", "fixtures", "Directory of fixture JSON files")
}

func runMock(cmd *cobra.Command, args []string) {
	port, _ := cmd.Flags().GetInt("port")
	fixtureDir, _ := cmd.Flags().GetString("fixtures")

	appLog, err := logger.CreateLogger(viper.GetString("log-file"), viper.GetString("log-level"), viper.GetString("log-format"), true)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	mockSrv, err := mockollama.New(fixtureDir, appLog)
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mockSrv.Router(),
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Mock server failed to start: %v", err)
		}
	}()

	fmt.Printf("\U0001F916 Mock inference server on :%d (fixtures: %s)\n", port, fixtureDir)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Mock server forced to shutdown: %v", err)
	}
}
