package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/extraction"
	"github.com/websapdev/ai-visibility/internal/models"
)

func main() {
	fmt.Println("🔍 AI Visibility - Engine Connectivity Test")
	fmt.Println("===========================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	registry, err := config.LoadEngines(cfg.EnginesFile)
	if err != nil {
		log.Fatalf("Failed to load engine registry: %v", err)
	}

	fetcher, err := engines.NewFetcher(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize fetcher: %v", err)
	}

	brand := "Acme Corp"
	competitors := []string{"Globex", "Soylent"}
	prompt := "Best enterprise software solutions 2025"

	fmt.Printf("\n📡 Testing the %s fetcher against %d engines...\n", fetcher.GetName(), len(registry))
	fmt.Println(strings.Repeat("-", 43))

	for _, e := range registry {
		testEngine(cfg, fetcher, models.AiEngine{Slug: e.Slug, DisplayName: e.DisplayName}, prompt, brand, competitors)
	}

	fmt.Println("\n✅ Engine connectivity test completed!")
}

func testEngine(cfg *config.Config, fetcher engines.Fetcher, engine models.AiEngine, prompt, brand string, competitors []string) {
	fmt.Printf("🔸 Testing %s... ", engine.DisplayName)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	answer, err := fetcher.Fetch(ctx, engine, prompt, brand, competitors)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}

	mentions := extraction.ExtractMentions(answer, brand, competitors)
	fmt.Printf("✅ SUCCESS (%d chars, %d mentions, %v)\n", len(answer), len(mentions), time.Since(start).Round(time.Millisecond))

	sample := answer
	if len(sample) > 120 {
		sample = sample[:120] + "..."
	}
	fmt.Printf("   📝 Sample: \"%s\"\n", sample)
}
