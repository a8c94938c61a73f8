// Stock Unlock — conversational equity research for US and NIFTY 500 stocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockunlock/stockunlock/api"
	"github.com/stockunlock/stockunlock/internal/chat"
	"github.com/stockunlock/stockunlock/internal/config"
	"github.com/stockunlock/stockunlock/internal/conversation"
	"github.com/stockunlock/stockunlock/internal/directory"
	"github.com/stockunlock/stockunlock/internal/llm"
	"github.com/stockunlock/stockunlock/internal/marketdata"
	"github.com/stockunlock/stockunlock/internal/news"
	"github.com/stockunlock/stockunlock/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockunlock",
	Short: "Stock Unlock — conversational equity research assistant",
	Long: `Stock Unlock
A conversational equity research assistant covering US stocks (live quotes,
moving averages, RSI, trailing returns) and Indian NIFTY 500 stocks
(fundamentals from the bundled reference table).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(statusCmd)
}

// buildService wires the deterministic core and optional collaborators the
// same way the API server does.
func buildService() *chat.Service {
	client := marketdata.NewTwelveData(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithCacheTTL(time.Duration(cfg.MarketData.CacheTTLSec)*time.Second),
		marketdata.WithRateLimit(cfg.MarketData.RateLimitRPS),
	)
	assembler := marketdata.NewAssembler(client, cfg.MarketData.HistoryDays)
	dir := directory.Shared(cfg.Directory.CSVPath)

	resolver := conversation.NewResolver(conversation.Options{
		SymbolMinLen:     cfg.Conversation.SymbolMinLen,
		SymbolMaxLen:     cfg.Conversation.SymbolMaxLen,
		GreetingKeywords: cfg.Conversation.GreetingKeywords,
	})
	planner := conversation.NewPlanner(resolver, assembler, dir)

	var provider llm.Provider
	if cfg.LLM.OpenAIKey != "" {
		if p, err := llm.NewOpenAIProvider(cfg.LLM.OpenAIKey, llm.WithOpenAIModel(cfg.LLM.Model)); err == nil {
			provider = p
		}
	}

	var headlines chat.Headlines
	if cfg.News.Enabled {
		headlines = news.NewFeed()
	}

	return chat.NewService(planner, provider, headlines, chat.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Moderation:  cfg.LLM.Moderation,
		NewsMax:     cfg.News.MaxItems,
	})
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Stock Unlock %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting Stock Unlock API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Chat Command ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant (interactive without arguments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := buildService()
		ctx := cmd.Context()

		// One-shot mode: answer a single message and exit.
		if len(args) > 0 {
			res, err := svc.Respond(ctx, []models.ChatMessage{
				{Role: models.RoleUser, Content: strings.Join(args, " ")},
			})
			if err != nil {
				return err
			}
			fmt.Println(res.Reply)
			return nil
		}

		fmt.Println("Stock Unlock chat. Type 'exit' to quit.")
		var history []models.ChatMessage
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "exit" || line == "quit" {
				break
			}

			history = append(history, models.ChatMessage{Role: models.RoleUser, Content: line})
			res, err := svc.Respond(ctx, history)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(res.Reply)
			history = append(history, models.ChatMessage{Role: models.RoleAssistant, Content: res.Reply})
		}
		return scanner.Err()
	},
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Fetch a full US analysis record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))

		client := marketdata.NewTwelveData(cfg.MarketData.APIKey,
			marketdata.WithBaseURL(cfg.MarketData.BaseURL),
			marketdata.WithCacheTTL(time.Duration(cfg.MarketData.CacheTTLSec)*time.Second),
			marketdata.WithRateLimit(cfg.MarketData.RateLimitRPS),
		)
		assembler := marketdata.NewAssembler(client, cfg.MarketData.HistoryDays)

		analysis, err := assembler.Assemble(cmd.Context(), symbol)
		if err != nil {
			return err
		}
		return printJSON(analysis)
	},
}

// --- Lookup Command ---

var lookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Resolve a NIFTY 500 company name or symbol",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		record := directory.Shared(cfg.Directory.CSVPath).Resolve(query)
		if record == nil {
			return fmt.Errorf("%q is not in the NIFTY 500 list", query)
		}
		return printJSON(record)
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [US|IN]",
	Short: "Show recent market headlines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		market := models.MarketMode(strings.ToUpper(args[0]))
		if market != models.MarketUS && market != models.MarketIN {
			return fmt.Errorf("market must be US or IN")
		}

		items, err := news.NewFeed().MarketHeadlines(cmd.Context(), market, cfg.News.MaxItems)
		if err != nil {
			return err
		}
		for _, item := range items {
			fmt.Printf("%s  [%s] %s\n", item.Published.Format("2006-01-02 15:04"), item.Source, item.Title)
		}
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := directory.Shared(cfg.Directory.CSVPath)

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Stock Unlock — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:        %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Model:          %s\n", cfg.LLM.Model)
		fmt.Printf("    Moderation:     %v\n", cfg.LLM.Moderation)
		fmt.Printf("    NIFTY 500 rows: %d\n", dir.Len())
		fmt.Printf("    News feed:      %v\n", cfg.News.Enabled)
		fmt.Printf("    API Server:     %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		fmt.Printf("    %-25s %s\n", "OpenAI:", keyStatus(cfg.LLM.OpenAIKey))
		fmt.Printf("    %-25s %s\n", "Market data:", keyStatus(cfg.MarketData.APIKey))
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func keyStatus(key string) string {
	if key == "" {
		return "not set"
	}
	masked := key
	if len(masked) > 8 {
		masked = masked[:4] + "..." + masked[len(masked)-4:]
	}
	return fmt.Sprintf("set (%s)", masked)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
